package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisTracker(t *testing.T) (*RedisTracker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisTracker(rdb, defaultTestConfig(), "bfl"), mr
}

func TestRedisTracker_ThresholdTriggersOnExactAttempt(t *testing.T) {
	tracker, _ := newTestRedisTracker(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		out, err := tracker.RecordFailure(ctx, "u@example.com")
		if err != nil {
			t.Fatalf("failure %d: unexpected error: %v", i, err)
		}
		if out.Blocked {
			t.Fatalf("failure %d: expected not blocked yet", i)
		}
	}

	out, err := tracker.RecordFailure(ctx, "u@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Blocked || !out.Triggered {
		t.Fatalf("expected 5th failure to trigger lockout, got %+v", out)
	}

	blocked, _ := tracker.IsBlocked(ctx, "u@example.com")
	if !blocked {
		t.Fatal("expected IsBlocked true after threshold")
	}

	remaining, _ := tracker.RemainingLockout(ctx, "u@example.com")
	if remaining <= 29*time.Minute || remaining > 30*time.Minute {
		t.Fatalf("expected remaining lockout near 30m, got %v", remaining)
	}
}

func TestRedisTracker_FailureDuringLockoutDoesNotExtend(t *testing.T) {
	tracker, mr := newTestRedisTracker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tracker.RecordFailure(ctx, "u@example.com")
	}

	mr.FastForward(10 * time.Minute)

	out, err := tracker.RecordFailure(ctx, "u@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Blocked || out.Triggered {
		t.Fatalf("expected blocked without re-trigger, got %+v", out)
	}

	remaining, _ := tracker.RemainingLockout(ctx, "u@example.com")
	if remaining > 20*time.Minute {
		t.Fatalf("expected lockout not extended, got %v", remaining)
	}
}

func TestRedisTracker_SuccessClearsHistory(t *testing.T) {
	tracker, _ := newTestRedisTracker(t)
	ctx := context.Background()

	tracker.RecordFailure(ctx, "u@example.com")
	tracker.RecordFailure(ctx, "u@example.com")

	if err := tracker.RecordSuccess(ctx, "u@example.com"); err != nil {
		t.Fatalf("record success failed: %v", err)
	}

	count, _ := tracker.FailureCount(ctx, "u@example.com")
	if count != 0 {
		t.Fatalf("expected count 0 after success, got %d", count)
	}

	out, _ := tracker.RecordFailure(ctx, "u@example.com")
	if out.Count != 1 {
		t.Fatalf("expected fresh streak, got count %d", out.Count)
	}
}

func TestRedisTracker_LockoutExpires(t *testing.T) {
	tracker, mr := newTestRedisTracker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tracker.RecordFailure(ctx, "u@example.com")
	}

	mr.FastForward(31 * time.Minute)

	blocked, _ := tracker.IsBlocked(ctx, "u@example.com")
	if blocked {
		t.Fatal("expected IsBlocked false after lockout expiry")
	}

	out, _ := tracker.RecordFailure(ctx, "u@example.com")
	if out.Blocked {
		t.Fatalf("expected fresh streak after expiry, got %+v", out)
	}
	if out.Count != 1 {
		t.Fatalf("expected count 1 after expiry, got %d", out.Count)
	}
}

func TestRedisTracker_UnblockIsIdempotent(t *testing.T) {
	tracker, _ := newTestRedisTracker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tracker.RecordFailure(ctx, "u@example.com")
	}

	for i := 0; i < 2; i++ {
		if err := tracker.Unblock(ctx, "u@example.com"); err != nil {
			t.Fatalf("unblock %d failed: %v", i+1, err)
		}
		blocked, _ := tracker.IsBlocked(ctx, "u@example.com")
		if blocked {
			t.Fatalf("unblock %d: expected not blocked", i+1)
		}
	}
}

func TestRedisTracker_StateTransitions(t *testing.T) {
	tracker, mr := newTestRedisTracker(t)
	ctx := context.Background()

	state, _ := tracker.State(ctx, "u@example.com")
	if state != StateClear {
		t.Fatalf("expected clear, got %v", state)
	}

	tracker.RecordFailure(ctx, "u@example.com")
	state, _ = tracker.State(ctx, "u@example.com")
	if state != StateAccumulating {
		t.Fatalf("expected accumulating, got %v", state)
	}

	for i := 0; i < 4; i++ {
		tracker.RecordFailure(ctx, "u@example.com")
	}
	state, _ = tracker.State(ctx, "u@example.com")
	if state != StateLocked {
		t.Fatalf("expected locked, got %v", state)
	}

	mr.FastForward(31 * time.Minute)
	state, _ = tracker.State(ctx, "u@example.com")
	if state != StateClear {
		t.Fatalf("expected clear after expiry, got %v", state)
	}
}
