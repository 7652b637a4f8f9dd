package authguard

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestGuard builds a memory-backed guard with the sweeper disabled so
// tests control eviction explicitly through SweepNow.
func newTestGuard(t *testing.T, mutate func(*Config)) (*Guard, *fakeClock) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Sweep.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	clock := newFakeClock()
	guard, err := New().WithConfig(cfg).WithClock(clock.Now).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(guard.Close)

	return guard, clock
}
