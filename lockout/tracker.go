package lockout

import (
	"context"
	"errors"
	"time"
)

// Config holds the escalation policy for failure streaks.
type Config struct {
	// MaxAttempts is the streak size that triggers a lockout.
	MaxAttempts int
	// AttemptWindow bounds how long a streak accumulates. A failure
	// arriving after the window restarts the streak at 1.
	AttemptWindow time.Duration
	// LockoutDuration is how long a triggered lockout holds. It should
	// exceed AttemptWindow so a lockout cannot be sidestepped by waiting
	// out the counting window.
	LockoutDuration time.Duration
}

// State classifies an identity's standing with the tracker.
type State uint8

const (
	// StateClear means no live failure streak exists.
	StateClear State = iota
	// StateAccumulating means failures are being counted but the
	// threshold has not been reached.
	StateAccumulating
	// StateLocked means the identity is inside an active lockout.
	StateLocked
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClear:
		return "clear"
	case StateAccumulating:
		return "accumulating"
	case StateLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Outcome reports the effect of recording one failure.
type Outcome struct {
	// Blocked is true when the identity is at or past the threshold.
	Blocked bool
	// Triggered is true only on the failure that crossed the threshold,
	// so callers can emit a single lockout event per escalation.
	Triggered bool
	// Count is the streak size after this failure.
	Count int
}

var (
	// ErrTrackerUnavailable indicates the backing store could not be reached.
	ErrTrackerUnavailable = errors.New("lockout tracker unavailable")
)

// Tracker escalates authentication failures into timed lockouts.
//
// Implementations must be safe for concurrent use. All operations are total:
// the only failure mode is an unreachable external backend.
type Tracker interface {
	// RecordFailure counts one failed attempt against identity.
	RecordFailure(ctx context.Context, identity string) (Outcome, error)

	// RecordSuccess deletes the identity's streak unconditionally.
	RecordSuccess(ctx context.Context, identity string) error

	// IsBlocked reports whether an active lockout exists. An expired
	// lockout is removed lazily and reported as not blocked.
	IsBlocked(ctx context.Context, identity string) (bool, error)

	// RemainingLockout returns how long the active lockout still holds,
	// or zero when the identity is not locked.
	RemainingLockout(ctx context.Context, identity string) (time.Duration, error)

	// FailureCount returns the live streak size without mutating state.
	// A streak whose attempt window has elapsed reads as zero.
	FailureCount(ctx context.Context, identity string) (int, error)

	// Unblock clears both the lockout and the streak. Safe to call on an
	// identity that is not blocked.
	Unblock(ctx context.Context, identity string) error

	// State classifies the identity as clear, accumulating, or locked.
	State(ctx context.Context, identity string) (State, error)

	// DeleteExpired removes entries whose lockout or attempt window
	// closed before the given instant and returns how many were evicted.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)

	// Close releases backing resources.
	Close() error
}

// Ensure interface compliance at compile time.
var (
	_ Tracker = (*MemoryTracker)(nil)
	_ Tracker = (*RedisTracker)(nil)
)
