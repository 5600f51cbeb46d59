// internal/dispatch/engine.go
package dispatch

import (
	"context"
	"fmt"
	"time"

	"delivery-pipeline/internal/common/config"
	"delivery-pipeline/internal/common/logger"
	"delivery-pipeline/internal/common/metrics"
	"delivery-pipeline/internal/common/observability"
	"delivery-pipeline/internal/models"
	"delivery-pipeline/internal/store"
	"delivery-pipeline/internal/transport"
)

// Transport sends one enriched payload to the delivery endpoint.
type Transport interface {
	Send(ctx context.Context, endpoint string, payload map[string]interface{}) transport.Outcome
}

// Engine drains pending notification records and hands each one to the
// transport. Records older than the dedup window are left untouched so
// a stalled queue does not replay hour-old noise at recipients.
type Engine struct {
	notifications store.NotificationStore
	transport     Transport
	endpoints     config.EndpointProvider
	obs           *observability.Observability
	cfg           config.DispatchConfig
	logger        logger.Logger
	now           func() time.Time
}

func NewEngine(notifications store.NotificationStore, t Transport, endpoints config.EndpointProvider,
	obs *observability.Observability, cfg config.DispatchConfig, log logger.Logger) *Engine {
	return &Engine{
		notifications: notifications,
		transport:     t,
		endpoints:     endpoints,
		obs:           obs,
		cfg:           cfg,
		logger:        log,
		now:           time.Now,
	}
}

// DispatchPending processes one batch of pending records, oldest first.
// A failing record is marked failed and never blocks the rest of the
// batch. The returned summary lists the terminal status per record.
func (e *Engine) DispatchPending(ctx context.Context) (*models.DispatchSummary, error) {
	ctx, span := e.obs.StartSpan(ctx, "dispatch.pass")
	defer span.End()

	started := e.now()
	defer func() {
		metrics.DispatchPassDuration.Observe(time.Since(started).Seconds())
		e.obs.RecordRunDuration(ctx, "dispatch", time.Since(started))
	}()

	if err := e.endpoints.Refresh(ctx); err != nil {
		e.logger.Warn("endpoint refresh failed, using cached value", map[string]interface{}{
			"error": err.Error(),
		})
	}
	endpoint, err := e.endpoints.Endpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve delivery endpoint: %w", err)
	}

	since := started.Add(-time.Duration(e.cfg.WindowMins) * time.Minute)
	records, err := e.notifications.PendingSince(ctx, since, e.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("load pending notifications: %w", err)
	}

	summary := &models.DispatchSummary{Processed: len(records)}
	for _, rec := range records {
		status := e.dispatchOne(ctx, endpoint, rec)
		summary.Results = append(summary.Results, models.DispatchResult{ID: rec.ID, Status: status})
		metrics.DispatchRecordsProcessed.WithLabelValues(status).Inc()
	}

	e.logger.Info("dispatch pass complete", map[string]interface{}{
		"processed": summary.Processed,
		"endpoint":  endpoint,
	})
	e.obs.RecordRun(ctx, "dispatch", "success")
	return summary, nil
}

func (e *Engine) dispatchOne(ctx context.Context, endpoint string, rec models.NotificationRecord) string {
	payload, err := e.enrich(ctx, rec)
	if err != nil {
		e.logger.Warn("failed to enrich notification", map[string]interface{}{
			"notificationId": rec.ID,
			"error":          err.Error(),
		})
		return e.markFailed(ctx, rec.ID, "recipient lookup failed")
	}

	outcome := e.transport.Send(ctx, endpoint, payload)
	if !outcome.OK {
		message := "delivery endpoint unreachable"
		if outcome.StatusCode != 0 {
			message = fmt.Sprintf("delivery endpoint returned %d", outcome.StatusCode)
		}
		return e.markFailed(ctx, rec.ID, message)
	}

	if err := e.notifications.MarkSent(ctx, rec.ID, e.now()); err != nil {
		e.logger.Error("failed to mark notification sent", map[string]interface{}{
			"notificationId": rec.ID,
			"error":          err.Error(),
		})
		return models.NotificationStatusPending
	}
	return models.NotificationStatusSent
}

func (e *Engine) markFailed(ctx context.Context, id, message string) string {
	if err := e.notifications.MarkFailed(ctx, id, message); err != nil {
		e.logger.Error("failed to mark notification failed", map[string]interface{}{
			"notificationId": id,
			"error":          err.Error(),
		})
		return models.NotificationStatusPending
	}
	return models.NotificationStatusFailed
}

// enrich builds the outbound payload: the record's own payload plus
// the event name and the recipient's profile fields.
func (e *Engine) enrich(ctx context.Context, rec models.NotificationRecord) (map[string]interface{}, error) {
	profile, err := e.notifications.RecipientProfile(ctx, rec.RecipientID)
	if err != nil {
		return nil, err
	}

	payload := make(map[string]interface{}, len(rec.Payload)+7)
	for k, v := range rec.Payload {
		payload[k] = v
	}
	payload["notificationId"] = rec.ID
	payload["event"] = rec.Event
	payload["channel"] = rec.Channel
	payload["createdAt"] = rec.CreatedAt.UTC().Format(time.RFC3339)
	payload["recipientId"] = profile.ID
	payload["recipientName"] = profile.Name
	payload["recipientEmail"] = profile.Email
	if rec.ActorID != "" {
		payload["actorId"] = rec.ActorID
	}
	return payload, nil
}
