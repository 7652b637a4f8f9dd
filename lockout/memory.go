package lockout

import (
	"context"
	"sync"
	"time"
)

type streak struct {
	count          int
	firstAttemptAt time.Time
	locked         bool
	lockedUntil    time.Time
}

// MemoryTracker is the in-process implementation of [Tracker]. One entry
// per identity behind a single mutex.
type MemoryTracker struct {
	mu      sync.Mutex
	streaks map[string]*streak
	config  Config
	now     func() time.Time
}

// NewMemoryTracker creates an empty in-memory tracker. A nil clock
// defaults to time.Now.
func NewMemoryTracker(cfg Config, clock func() time.Time) *MemoryTracker {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTracker{
		streaks: make(map[string]*streak),
		config:  cfg,
		now:     clock,
	}
}

// RecordFailure counts one failed attempt against identity.
func (t *MemoryTracker) RecordFailure(_ context.Context, identity string) (Outcome, error) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streaks[identity]
	if !ok {
		t.streaks[identity] = &streak{count: 1, firstAttemptAt: now}
		return Outcome{Count: 1}, nil
	}

	if s.locked {
		if now.After(s.lockedUntil) {
			// Lockout has run out; this failure opens a fresh streak.
			t.streaks[identity] = &streak{count: 1, firstAttemptAt: now}
			return Outcome{Count: 1}, nil
		}
		// Failures during an active lockout keep counting but never
		// extend the deadline.
		s.count++
		return Outcome{Blocked: true, Count: s.count}, nil
	}

	if now.Sub(s.firstAttemptAt) > t.config.AttemptWindow {
		// Stale streak: restart at 1 rather than accumulating forever.
		t.streaks[identity] = &streak{count: 1, firstAttemptAt: now}
		return Outcome{Count: 1}, nil
	}

	s.count++
	if s.count >= t.config.MaxAttempts {
		s.locked = true
		s.lockedUntil = now.Add(t.config.LockoutDuration)
		return Outcome{Blocked: true, Triggered: true, Count: s.count}, nil
	}

	return Outcome{Count: s.count}, nil
}

// RecordSuccess deletes the identity's streak unconditionally.
func (t *MemoryTracker) RecordSuccess(_ context.Context, identity string) error {
	t.mu.Lock()
	delete(t.streaks, identity)
	t.mu.Unlock()
	return nil
}

// IsBlocked reports whether an active lockout exists, removing an expired
// one lazily.
func (t *MemoryTracker) IsBlocked(_ context.Context, identity string) (bool, error) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streaks[identity]
	if !ok || !s.locked {
		return false, nil
	}
	if now.After(s.lockedUntil) {
		delete(t.streaks, identity)
		return false, nil
	}
	return true, nil
}

// RemainingLockout returns how long the active lockout still holds.
func (t *MemoryTracker) RemainingLockout(_ context.Context, identity string) (time.Duration, error) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streaks[identity]
	if !ok || !s.locked || now.After(s.lockedUntil) {
		return 0, nil
	}
	return s.lockedUntil.Sub(now), nil
}

// FailureCount returns the live streak size. Read-only: a stale entry
// reads as zero but is left for the sweep to collect.
func (t *MemoryTracker) FailureCount(_ context.Context, identity string) (int, error) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streaks[identity]
	if !ok {
		return 0, nil
	}
	if s.locked {
		if now.After(s.lockedUntil) {
			return 0, nil
		}
		return s.count, nil
	}
	if now.Sub(s.firstAttemptAt) > t.config.AttemptWindow {
		return 0, nil
	}
	return s.count, nil
}

// Unblock clears both the lockout and the streak. Idempotent.
func (t *MemoryTracker) Unblock(_ context.Context, identity string) error {
	t.mu.Lock()
	delete(t.streaks, identity)
	t.mu.Unlock()
	return nil
}

// State classifies the identity as clear, accumulating, or locked.
func (t *MemoryTracker) State(_ context.Context, identity string) (State, error) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streaks[identity]
	if !ok {
		return StateClear, nil
	}
	if s.locked {
		if now.After(s.lockedUntil) {
			return StateClear, nil
		}
		return StateLocked, nil
	}
	if now.Sub(s.firstAttemptAt) > t.config.AttemptWindow {
		return StateClear, nil
	}
	return StateAccumulating, nil
}

// DeleteExpired evicts streaks whose lockout or attempt window closed
// before the given instant.
func (t *MemoryTracker) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for identity, s := range t.streaks {
		expiry := s.firstAttemptAt.Add(t.config.AttemptWindow)
		if s.locked {
			expiry = s.lockedUntil
		}
		if expiry.Before(before) {
			delete(t.streaks, identity)
			evicted++
		}
	}
	return evicted, nil
}

// Close clears the tracker.
func (t *MemoryTracker) Close() error {
	t.mu.Lock()
	t.streaks = make(map[string]*streak)
	t.mu.Unlock()
	return nil
}

// Len returns the number of live entries. Intended for tests and
// introspection.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streaks)
}
