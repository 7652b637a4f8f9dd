package authguard

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config defines guard-wide tuning. Instances are configured during
// initialization and treated as immutable afterwards.
type Config struct {
	Window  WindowConfig
	Lockout LockoutConfig
	Sweep   SweepConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// WindowConfig tunes the request-window counter store.
type WindowConfig struct {
	// RedisPrefix namespaces window keys when a Redis backend is used.
	RedisPrefix string
}

// LockoutConfig tunes the brute-force escalation guard.
type LockoutConfig struct {
	// MaxAttempts is the consecutive-failure streak that triggers a
	// lockout.
	MaxAttempts int
	// AttemptWindow bounds how long a streak accumulates before it
	// restarts.
	AttemptWindow time.Duration
	// LockoutDuration is how long a triggered lockout holds. Keep it
	// longer than AttemptWindow so a lockout cannot be sidestepped by
	// waiting out the counting window.
	LockoutDuration time.Duration
	// RedisPrefix namespaces lockout keys when a Redis backend is used.
	RedisPrefix string
}

// SweepConfig tunes the periodic eviction of expired entries. The sweep is
// a memory bound, never a correctness requirement: expiry is evaluated
// lazily on every read and write regardless of sweep cadence.
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
}

// AuditConfig controls the async audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the guard's atomic counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 5 failures per 15 minutes
// escalate into a 30-minute lockout, expired entries are swept every 5
// minutes.
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			RedisPrefix: "agw",
		},
		Lockout: LockoutConfig{
			MaxAttempts:     5,
			AttemptWindow:   15 * time.Minute,
			LockoutDuration: 30 * time.Minute,
			RedisPrefix:     "agl",
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// ConfigFromEnv builds a Config from AUTHGUARD_* environment variables on
// top of [DefaultConfig]. A .env file in the working directory is loaded
// first when present. Durations use Go syntax ("15m", "1h30m").
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	var err error
	if cfg.Lockout.MaxAttempts, err = envInt("AUTHGUARD_MAX_ATTEMPTS", cfg.Lockout.MaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.Lockout.AttemptWindow, err = envDuration("AUTHGUARD_ATTEMPT_WINDOW", cfg.Lockout.AttemptWindow); err != nil {
		return Config{}, err
	}
	if cfg.Lockout.LockoutDuration, err = envDuration("AUTHGUARD_LOCKOUT_DURATION", cfg.Lockout.LockoutDuration); err != nil {
		return Config{}, err
	}
	if cfg.Sweep.Enabled, err = envBool("AUTHGUARD_SWEEP_ENABLED", cfg.Sweep.Enabled); err != nil {
		return Config{}, err
	}
	if cfg.Sweep.Interval, err = envDuration("AUTHGUARD_SWEEP_INTERVAL", cfg.Sweep.Interval); err != nil {
		return Config{}, err
	}
	if cfg.Audit.Enabled, err = envBool("AUTHGUARD_AUDIT_ENABLED", cfg.Audit.Enabled); err != nil {
		return Config{}, err
	}
	if cfg.Audit.BufferSize, err = envInt("AUTHGUARD_AUDIT_BUFFER", cfg.Audit.BufferSize); err != nil {
		return Config{}, err
	}
	if cfg.Metrics.Enabled, err = envBool("AUTHGUARD_METRICS_ENABLED", cfg.Metrics.Enabled); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("AUTHGUARD_WINDOW_PREFIX"); v != "" {
		cfg.Window.RedisPrefix = v
	}
	if v := os.Getenv("AUTHGUARD_LOCKOUT_PREFIX"); v != "" {
		cfg.Lockout.RedisPrefix = v
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.Lockout.MaxAttempts <= 0 {
		return fmt.Errorf("%w: lockout max attempts must be positive", ErrInvalidConfig)
	}
	if cfg.Lockout.AttemptWindow <= 0 {
		return fmt.Errorf("%w: lockout attempt window must be positive", ErrInvalidConfig)
	}
	if cfg.Lockout.LockoutDuration <= 0 {
		return fmt.Errorf("%w: lockout duration must be positive", ErrInvalidConfig)
	}
	if cfg.Sweep.Enabled && cfg.Sweep.Interval <= 0 {
		return fmt.Errorf("%w: sweep interval must be positive when sweeping is enabled", ErrInvalidConfig)
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: audit buffer size must be positive when audit is enabled", ErrInvalidConfig)
	}
	return nil
}

func envInt(name string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	return n, nil
}

func envBool(name string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	return b, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	return d, nil
}
