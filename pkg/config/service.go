package config

import (
	"fmt"
	"time"
)

// StoreKind selects a storage backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreRedis    StoreKind = "redis"
	StorePostgres StoreKind = "postgres"
)

// Service is the process-level configuration of the featuregate service.
// Backend-specific settings (pg.Config, redis.Config, httpserver.Config) are parsed
// separately, and only when the selected stores need them.
type Service struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`  // AppEnv is development, staging or production.
	AppName  string `env:"APP_NAME" envDefault:"featuregate"` // AppName is attached to every log record as "service".
	LogLevel string `env:"LOG_LEVEL"`                         // LogLevel overrides the environment's default level.

	UsageTimezone string `env:"USAGE_TIMEZONE" envDefault:"UTC"` // UsageTimezone decides where the daily quota boundary falls.
	CatalogPath   string `env:"CATALOG_PATH"`                    // CatalogPath points to a YAML tier catalog; empty uses the built-in one.

	UsageStore        StoreKind     `env:"USAGE_STORE" envDefault:"memory"`        // UsageStore is memory, redis or postgres.
	SubscriptionStore StoreKind     `env:"SUBSCRIPTION_STORE" envDefault:"memory"` // SubscriptionStore is memory or postgres.
	StoreTimeout      time.Duration `env:"STORE_TIMEOUT" envDefault:"2s"`          // StoreTimeout bounds every counter store call.

	RedisUsagePrefix    string        `env:"REDIS_USAGE_PREFIX" envDefault:"featuregate:usage"` // RedisUsagePrefix namespaces usage hashes.
	RedisUsageRetention time.Duration `env:"REDIS_USAGE_RETENTION" envDefault:"0s"`             // RedisUsageRetention expires usage hashes; 0 keeps them.

	UserIDHeader   string `env:"USER_ID_HEADER" envDefault:"X-User-ID"` // UserIDHeader carries the authenticated user id.
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`     // MetricsEnabled exposes /metrics.
}

// Validate checks store selections and durations.
func (s Service) Validate() error {
	switch s.UsageStore {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("USAGE_STORE: unsupported store %q", s.UsageStore)
	}
	switch s.SubscriptionStore {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("SUBSCRIPTION_STORE: unsupported store %q", s.SubscriptionStore)
	}
	if s.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT: must be positive, got %s", s.StoreTimeout)
	}
	if s.RedisUsageRetention < 0 {
		return fmt.Errorf("REDIS_USAGE_RETENTION: must not be negative, got %s", s.RedisUsageRetention)
	}
	if s.UserIDHeader == "" {
		return fmt.Errorf("USER_ID_HEADER: must not be empty")
	}
	return nil
}

// NeedsPostgres reports whether any selected store is backed by PostgreSQL.
func (s Service) NeedsPostgres() bool {
	return s.UsageStore == StorePostgres || s.SubscriptionStore == StorePostgres
}

// NeedsRedis reports whether the usage store is backed by Redis.
func (s Service) NeedsRedis() bool {
	return s.UsageStore == StoreRedis
}
