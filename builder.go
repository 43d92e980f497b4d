package authsession

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/adminkit/authsession/permission"
	"github.com/adminkit/authsession/storage"
)

// Builder assembles an [Engine]. Each builder builds at most once.
type Builder struct {
	config    Config
	storage   storage.Adapter
	auth      AuthTransport
	perms     PermissionTransport
	logger    zerolog.Logger
	loggerSet bool
	auditSink AuditSink
	redirect  func()
	clock     func() time.Time

	built bool
}

// New creates a Builder preloaded with package defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the persistence backend. Required.
func (b *Builder) WithStorage(adapter storage.Adapter) *Builder {
	b.storage = adapter
	return b
}

// WithAuthTransport sets the session lifecycle transport. Required.
func (b *Builder) WithAuthTransport(t AuthTransport) *Builder {
	b.auth = t
	return b
}

// WithPermissionTransport sets the permission fetch transport. Required.
func (b *Builder) WithPermissionTransport(t PermissionTransport) *Builder {
	b.perms = t
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	b.loggerSet = true
	return b
}

// WithAuditSink sets the audit event consumer. Audit emission additionally
// requires Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRedirectHook sets the callback fired once when a session turns out to
// be invalid. Typically navigates to a login screen.
func (b *Builder) WithRedirectHook(fn func()) *Builder {
	b.redirect = fn
	return b
}

// WithClock overrides the time source. Test seam; defaults to time.Now.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and dependencies and constructs the
// engine. The engine holds no session until Login or Initialize.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Session.PopulateTimeout == 0 {
		cfg.Session.PopulateTimeout = defaultConfig().Session.PopulateTimeout
	}

	if b.storage == nil {
		return nil, errors.New("storage adapter required")
	}
	if b.auth == nil {
		return nil, errors.New("auth transport required")
	}
	if b.perms == nil {
		return nil, errors.New("permission transport required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if !b.loggerSet {
		logger = zerolog.Nop()
	}

	engine := &Engine{
		config:   cfg,
		storage:  b.storage,
		auth:     b.auth,
		perms:    b.perms,
		logger:   logger,
		redirect: b.redirect,
		clock:    clock,
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	cache, err := permission.NewCache(permission.Options{
		TTL:             cfg.Cache.TTL,
		RefreshTimeout:  cfg.Cache.RefreshTimeout,
		Fetch:           engine.fetchPermissions,
		Fallback:        engine.fallbackPermissions,
		Persist:         engine.persistSnapshot,
		Clock:           clock,
		Logger:          logger,
		BreakerEnabled:  cfg.Breaker.Enabled,
		BreakerFailures: cfg.Breaker.Failures,
		BreakerOpenFor:  cfg.Breaker.OpenFor,
	})
	if err != nil {
		return nil, err
	}
	engine.cache = cache

	b.built = true

	return engine, nil
}
