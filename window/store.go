package window

import (
	"context"
	"time"
)

// Limit carries the per-check window parameters. The store itself is
// policy-agnostic: the caller supplies the window duration and maximum on
// every check, so one store serves any number of endpoint classes.
type Limit struct {
	Window time.Duration
	Max    int
}

// Decision is the outcome of a single check.
type Decision struct {
	Allowed    bool
	Count      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // zero unless denied
}

// Store counts requests per bucket key over fixed windows.
//
// Implementations must be safe for concurrent use. Check is a single atomic
// read-modify-write: create-or-reset the entry, compare against the limit,
// increment.
type Store interface {
	// Check records one request against key and reports whether it is
	// within limit. A key whose window has expired is reset, never
	// denied on stale state.
	Check(ctx context.Context, key string, limit Limit) (Decision, error)

	// Reset removes the entry for key, if any.
	Reset(ctx context.Context, key string) error

	// ResetAll removes every entry.
	ResetAll(ctx context.Context) error

	// DeleteExpired removes entries whose window closed before the given
	// instant and returns how many were evicted.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)

	// Close releases backing resources.
	Close() error
}

// Ensure interface compliance at compile time.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
