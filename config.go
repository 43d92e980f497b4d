package authsession

import (
	"errors"
	"time"

	"github.com/adminkit/authsession/permission"
)

// Config groups engine tuning. Values are fixed at Build time; mutating a
// Config after Build has no effect on a running engine.
type Config struct {
	Session SessionConfig `koanf:"session"`
	Cache   CacheConfig   `koanf:"cache"`
	Breaker BreakerConfig `koanf:"breaker"`
	Audit   AuditConfig   `koanf:"audit"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// SessionConfig tunes session adoption and recovery.
type SessionConfig struct {
	// StoragePrefix namespaces the persisted session keys.
	StoragePrefix string `koanf:"storage_prefix"`
	// PopulateTimeout bounds the background work after adoption: resolving
	// a missing profile and warming the permission cache.
	PopulateTimeout time.Duration `koanf:"populate_timeout"`
}

// CacheConfig tunes the permission cache.
type CacheConfig struct {
	// TTL is the freshness window of a resolved permission set.
	TTL time.Duration `koanf:"ttl"`
	// RefreshTimeout bounds a background permission refresh.
	RefreshTimeout time.Duration `koanf:"refresh_timeout"`
}

// BreakerConfig tunes the circuit breaker around permission fetches.
type BreakerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Failures uint32        `koanf:"failures"`
	OpenFor  time.Duration `koanf:"open_for"`
}

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
}

// MetricsConfig tunes in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled"`
	EnableLatencyHistograms bool `koanf:"enable_latency_histograms"`
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			StoragePrefix:   "authsession",
			PopulateTimeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			TTL:            permission.DefaultTTL,
			RefreshTimeout: permission.DefaultRefreshTimeout,
		},
		Breaker: BreakerConfig{
			Enabled:  true,
			Failures: 3,
			OpenFor:  30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are values; assignment copies everything.
	return cfg
}

// Validate rejects configurations the engine cannot run with. Zero durations
// are allowed and fall back to package defaults at Build time.
func (c *Config) Validate() error {
	if c.Session.PopulateTimeout < 0 {
		return errors.New("config: session populate_timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return errors.New("config: cache ttl must not be negative")
	}
	if c.Cache.RefreshTimeout < 0 {
		return errors.New("config: cache refresh_timeout must not be negative")
	}
	if c.Breaker.OpenFor < 0 {
		return errors.New("config: breaker open_for must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("config: audit buffer_size must not be negative")
	}
	return nil
}
