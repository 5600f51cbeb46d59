// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DispatchConfig holds settings for the notification dispatch engine.
type DispatchConfig struct {
	// Endpoint is the default webhook endpoint; the redis-backed provider
	// can override it at runtime without a redeploy.
	Endpoint    string `mapstructure:"endpoint"`
	AuthToken   string `mapstructure:"auth_token"`
	WindowMins  int    `mapstructure:"window_minutes"`
	BatchSize   int    `mapstructure:"batch_size"`
	HTTPTimeout int    `mapstructure:"http_timeout"` // milliseconds
}

func (d DispatchConfig) HTTPDuration() time.Duration { return GetDuration(d.HTTPTimeout) }

// PublishConfig holds settings for the social publishing orchestrator.
type PublishConfig struct {
	PollAttempts   int `mapstructure:"poll_attempts"`
	PollInterval   int `mapstructure:"poll_interval"`   // milliseconds
	RunTimeout     int `mapstructure:"run_timeout"`     // milliseconds, whole run
	AdapterTimeout int `mapstructure:"adapter_timeout"` // milliseconds, per remote call
	LockTTL        int `mapstructure:"lock_ttl"`        // milliseconds

	Platforms PlatformsConfig `mapstructure:"platforms"`
}

func (p PublishConfig) PollDuration() time.Duration    { return GetDuration(p.PollInterval) }
func (p PublishConfig) RunDuration() time.Duration     { return GetDuration(p.RunTimeout) }
func (p PublishConfig) AdapterDuration() time.Duration { return GetDuration(p.AdapterTimeout) }
func (p PublishConfig) LockDuration() time.Duration    { return GetDuration(p.LockTTL) }

type PlatformsConfig struct {
	Facebook  PlatformConfig `mapstructure:"facebook"`
	Instagram PlatformConfig `mapstructure:"instagram"`
}

// PlatformConfig is the Graph API surface for one platform.
type PlatformConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIVersion string `mapstructure:"api_version"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
