// cmd/pipeline/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"delivery-pipeline/internal/api"
	"delivery-pipeline/internal/common/config"
	"delivery-pipeline/internal/common/database"
	"delivery-pipeline/internal/common/logger"
	"delivery-pipeline/internal/common/observability"
	"delivery-pipeline/internal/dispatch"
	"delivery-pipeline/internal/publish"
	"delivery-pipeline/internal/publish/facebook"
	"delivery-pipeline/internal/publish/instagram"
	"delivery-pipeline/internal/store/postgres"
	"delivery-pipeline/internal/transport"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	// Bootstrap logger; replaced with the configured one once config loads.
	zapLog := logger.New("info", "console")
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting delivery pipeline...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog.Sync()
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log = logger.NewZapAdapter(zapLog)

	obs := observability.New("delivery-pipeline")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()
	zapLog.Info("Redis connected successfully")

	// --- Stores ---
	notifications := postgres.NewNotificationStore(pg)
	content := postgres.NewContentStore(pg)
	accounts := postgres.NewAccountStore(pg)

	// --- Notification dispatch engine ---
	endpoints := config.NewRedisEndpointProvider(rds, cfg.Dispatch.Endpoint, time.Minute)
	sender := transport.NewClient(cfg.Dispatch.HTTPDuration(), cfg.Dispatch.AuthToken, log)
	engine := dispatch.NewEngine(notifications, sender, endpoints, obs, cfg.Dispatch, log)

	// --- Social publishing orchestrator ---
	registry := publish.NewRegistry(
		facebook.New(cfg.Publish.Platforms.Facebook, cfg.Publish.AdapterDuration(), log),
		instagram.New(cfg.Publish.Platforms.Instagram, cfg.Publish.AdapterDuration(), log),
	)
	locker := publish.NewRedisLocker(rds, cfg.Publish.LockDuration())
	orchestrator := publish.NewOrchestrator(content, accounts, notifications,
		registry, locker, obs, cfg.Publish, log)

	// --- HTTP server ---
	handlers := api.NewHandlers(engine, orchestrator, pg, rds, log)
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
