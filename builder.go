package authguard

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farmstack/authguard/lockout"
	"github.com/farmstack/authguard/window"
)

// Builder assembles a [Guard]. Zero or more With* calls configure it;
// Build wires the stores, starts the audit dispatcher and the sweeper, and
// may be called once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	windows   window.Store
	lockouts  lockout.Tracker
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New creates a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis backs both stores with the given Redis client, sharing guard
// state across processes. Ignored for a store supplied explicitly.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithWindowStore injects a custom request-window store.
func (b *Builder) WithWindowStore(s window.Store) *Builder {
	b.windows = s
	return b
}

// WithLockoutTracker injects a custom brute-force tracker.
func (b *Builder) WithLockoutTracker(t lockout.Tracker) *Builder {
	b.lockouts = t
	return b
}

// WithAuditSink sets the destination for audit events. Events are
// dispatched asynchronously; a nil sink with audit enabled falls back to
// [NoOpSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the guard's time source. Tests inject a fake clock
// to drive window and lockout expiry deterministically.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// Build validates the configuration and assembles the Guard.
func (b *Builder) Build() (*Guard, error) {
	if b.built {
		return nil, ErrBuilderReused
	}

	if err := validateConfig(b.config); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	windows := b.windows
	if windows == nil {
		if b.redis != nil {
			windows = window.NewRedisStore(b.redis, b.config.Window.RedisPrefix)
		} else {
			windows = window.NewMemoryStore(clock)
		}
	}

	lockouts := b.lockouts
	if lockouts == nil {
		lockoutCfg := lockout.Config{
			MaxAttempts:     b.config.Lockout.MaxAttempts,
			AttemptWindow:   b.config.Lockout.AttemptWindow,
			LockoutDuration: b.config.Lockout.LockoutDuration,
		}
		if b.redis != nil {
			lockouts = lockout.NewRedisTracker(b.redis, lockoutCfg, b.config.Lockout.RedisPrefix)
		} else {
			lockouts = lockout.NewMemoryTracker(lockoutCfg, clock)
		}
	}

	g := &Guard{
		config:   b.config,
		windows:  windows,
		lockouts: lockouts,
		metrics:  newMetrics(b.config.Metrics),
		audit:    newAuditDispatcher(b.config.Audit, b.auditSink),
		now:      clock,
	}

	if b.config.Sweep.Enabled {
		g.startSweeper()
	}

	b.built = true
	return g, nil
}
