package window

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryStore is the in-process implementation of [Store]. It holds one
// entry per bucket key behind a single mutex; every check completes in
// constant time, so the coarse lock stays uncontended in practice.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store. A nil clock defaults
// to time.Now; tests inject a fake clock to drive window expiry.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     clock,
	}
}

// Check records one request against key under the given limit.
func (s *MemoryStore) Check(_ context.Context, key string, limit Limit) (Decision, error) {
	if limit.Window <= 0 || limit.Max <= 0 {
		return Decision{}, ErrInvalidLimit
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		// Expiry takes precedence over limit checking: a stale entry is
		// replaced with a fresh window, never counted against the caller.
		e = &entry{count: 1, resetAt: now.Add(limit.Window)}
		s.entries[key] = e
		return allowed(e, limit), nil
	}

	e.count++
	if e.count > limit.Max {
		return Decision{
			Allowed:    false,
			Count:      e.count,
			ResetAt:    e.resetAt,
			RetryAfter: e.resetAt.Sub(now),
		}, nil
	}

	return allowed(e, limit), nil
}

func allowed(e *entry, limit Limit) Decision {
	remaining := limit.Max - e.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Count:     e.count,
		Remaining: remaining,
		ResetAt:   e.resetAt,
	}
}

// Reset removes the entry for key.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// ResetAll removes every entry.
func (s *MemoryStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
	return nil
}

// DeleteExpired evicts entries whose window closed before the given instant.
// The lock is held only for the duration of one scan.
func (s *MemoryStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, e := range s.entries {
		if e.resetAt.Before(before) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted, nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
	return nil
}

// Len returns the number of live entries. Intended for tests and
// introspection.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
