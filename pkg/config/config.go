package config

import (
	"time"

	"github.com/danuputra/tokoku/internal/consistency"
	"github.com/danuputra/tokoku/internal/functions"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/notify"
	"github.com/danuputra/tokoku/internal/ratelimit"
	"github.com/danuputra/tokoku/pkg/redis"
)

// Config holds the full runtime configuration of the storefront client.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Log         LogConfig          `mapstructure:"log"`
	Server      ServerConfig       `mapstructure:"server"`
	Gateway     gateway.Config     `mapstructure:"gateway" validate:"required"`
	Functions   functions.Config   `mapstructure:"functions" validate:"required"`
	Storage     StorageConfig      `mapstructure:"storage"`
	Redis       RedisConfig        `mapstructure:"redis"`
	Consistency consistency.Policy `mapstructure:"consistency"`
	Session     SessionConfig      `mapstructure:"session"`
	Telegram    notify.Config      `mapstructure:"telegram"`
	RateLimit   ratelimit.Config   `mapstructure:"rate_limit"`
	Jobs        JobsConfig         `mapstructure:"jobs"`
	Sentry      SentryConfig       `mapstructure:"sentry"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level    string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	FilePath string `mapstructure:"file_path"`
}

// ServerConfig controls the operational HTTP endpoint (health and metrics).
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig names the object storage bucket for uploads.
type StorageConfig struct {
	Bucket string `mapstructure:"bucket" validate:"required"`
}

// RedisConfig wraps the client settings with an enable switch: the
// storefront degrades to uncached reads and no background jobs without
// Redis.
type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// SessionConfig tunes the session cache actor.
type SessionConfig struct {
	RefetchDelay time.Duration `mapstructure:"refetch_delay"`
}

// JobsConfig tunes the background worker.
type JobsConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Queues      map[string]int `mapstructure:"queues"`
	Concurrency int            `mapstructure:"concurrency"`
}

// SentryConfig controls error forwarding.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Environment string  `mapstructure:"environment"`
}
