package authguard

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/farmstack/authguard/lockout"
	"github.com/farmstack/authguard/window"
)

// Decision is the outcome of one rate-limit check. Deny is an ordinary
// value, not an error: callers translate it into a 429-style rejection
// carrying Message, StatusCode, and RetryAfterSeconds.
type Decision struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
	ResetAt           time.Time
	Message           string
	StatusCode        int
}

// Guard is the process-wide rate limiting and brute-force lockout guard.
// Construct it through [Builder.Build]; all methods are then safe for
// concurrent use.
type Guard struct {
	config   Config
	windows  window.Store
	lockouts lockout.Tracker
	metrics  *Metrics
	audit    *auditDispatcher
	now      func() time.Time

	sweepDone chan struct{}
	sweepWG   sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// Check records one request for (clientKey, route) against the policy and
// reports whether it is within its allotted rate. A denied Decision carries
// the policy's rejection message and the seconds until the window resets.
func (g *Guard) Check(ctx context.Context, clientKey, route string, policy Policy) (Decision, error) {
	if g.closed.Load() {
		return Decision{}, ErrGuardClosed
	}
	if !policy.valid() {
		return Decision{}, window.ErrInvalidLimit
	}

	d, err := g.windows.Check(ctx, bucketKey(clientKey, route), window.Limit{
		Window: policy.Window,
		Max:    policy.MaxRequests,
	})
	if err != nil {
		return Decision{}, err
	}

	if d.Allowed {
		g.metrics.inc(MetricCheckAllowed)
		return Decision{Allowed: true, Remaining: d.Remaining, ResetAt: d.ResetAt}, nil
	}

	retry := ceilSeconds(d.RetryAfter)
	g.metrics.inc(MetricCheckDenied)
	g.emit(ctx, AuditEvent{
		EventType: EventRateLimitDenied,
		ClientKey: clientKey,
		Route:     route,
		Metadata: map[string]string{
			"policy":              policy.Name,
			"retry_after_seconds": strconv.Itoa(retry),
		},
	})

	return Decision{
		Allowed:           false,
		RetryAfterSeconds: retry,
		ResetAt:           d.ResetAt,
		Message:           policy.Message,
		StatusCode:        policy.StatusCode,
	}, nil
}

// RecordFailure counts one failed authentication attempt against identity
// and reports whether the identity should now be blocked. The caller
// invokes this only on genuine authentication failures; request volume is
// Check's concern.
func (g *Guard) RecordFailure(ctx context.Context, identity string) (bool, error) {
	if g.closed.Load() {
		return false, ErrGuardClosed
	}

	out, err := g.lockouts.RecordFailure(ctx, identity)
	if err != nil {
		return false, err
	}

	g.metrics.inc(MetricFailureRecorded)
	if out.Triggered {
		g.metrics.inc(MetricLockoutTriggered)
		g.emit(ctx, AuditEvent{
			EventType: EventLockoutTriggered,
			Identity:  identity,
			Metadata: map[string]string{
				"failure_count": strconv.Itoa(out.Count),
				"lockout_seconds": strconv.Itoa(
					ceilSeconds(g.config.Lockout.LockoutDuration)),
			},
		})
	}

	return out.Blocked, nil
}

// RecordSuccess deletes the identity's failure streak unconditionally.
func (g *Guard) RecordSuccess(ctx context.Context, identity string) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}
	return g.lockouts.RecordSuccess(ctx, identity)
}

// IsBlocked reports whether identity is inside an active lockout. The
// caller rejects the attempt outright when true, independent of whether
// the supplied credentials were otherwise valid.
func (g *Guard) IsBlocked(ctx context.Context, identity string) (bool, error) {
	if g.closed.Load() {
		return false, ErrGuardClosed
	}
	return g.lockouts.IsBlocked(ctx, identity)
}

// RemainingLockoutSeconds returns the whole seconds until the identity's
// lockout expires, or 0 when not locked. Suitable for "try again in N
// seconds" messages.
func (g *Guard) RemainingLockoutSeconds(ctx context.Context, identity string) (int, error) {
	if g.closed.Load() {
		return 0, ErrGuardClosed
	}
	remaining, err := g.lockouts.RemainingLockout(ctx, identity)
	if err != nil {
		return 0, err
	}
	return ceilSeconds(remaining), nil
}

// FailureCount returns the identity's live failure streak size.
func (g *Guard) FailureCount(ctx context.Context, identity string) (int, error) {
	if g.closed.Load() {
		return 0, ErrGuardClosed
	}
	return g.lockouts.FailureCount(ctx, identity)
}

// LockoutState classifies identity as clear, accumulating, or locked.
func (g *Guard) LockoutState(ctx context.Context, identity string) (lockout.State, error) {
	if g.closed.Load() {
		return lockout.StateClear, ErrGuardClosed
	}
	return g.lockouts.State(ctx, identity)
}

// Unblock is the administrative override: it clears both the lockout and
// the failure streak immediately. Idempotent.
func (g *Guard) Unblock(ctx context.Context, identity string) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}
	if err := g.lockouts.Unblock(ctx, identity); err != nil {
		return err
	}

	g.metrics.inc(MetricLockoutCleared)
	g.emit(ctx, AuditEvent{
		EventType: EventLockoutCleared,
		Identity:  identity,
	})
	return nil
}

// Reset clears the request window for (clientKey, route). Intended for
// operator tooling and test harnesses.
func (g *Guard) Reset(ctx context.Context, clientKey, route string) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}
	if err := g.windows.Reset(ctx, bucketKey(clientKey, route)); err != nil {
		return err
	}
	g.emit(ctx, AuditEvent{
		EventType: EventWindowReset,
		ClientKey: clientKey,
		Route:     route,
	})
	return nil
}

// ResetAll clears every request window.
func (g *Guard) ResetAll(ctx context.Context) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}
	if err := g.windows.ResetAll(ctx); err != nil {
		return err
	}
	g.emit(ctx, AuditEvent{EventType: EventWindowReset})
	return nil
}

// SweepNow runs one eviction pass over both stores. The background sweeper
// calls this on its interval; exposing it keeps tests deterministic and
// gives operator tooling a manual trigger.
func (g *Guard) SweepNow(ctx context.Context) {
	before := g.now()

	if n, err := g.windows.DeleteExpired(ctx, before); err == nil {
		g.metrics.add(MetricSweepEvicted, uint64(n))
	}
	if n, err := g.lockouts.DeleteExpired(ctx, before); err == nil {
		g.metrics.add(MetricSweepEvicted, uint64(n))
	}
}

// MetricsSnapshot returns a point-in-time copy of the guard's counters.
func (g *Guard) MetricsSnapshot() MetricsSnapshot {
	return g.metrics.snapshot()
}

// AuditDropped returns how many audit events were dropped under
// backpressure.
func (g *Guard) AuditDropped() uint64 {
	return g.audit.Dropped()
}

// Close stops the background sweeper, drains the audit dispatcher, and
// releases both stores. Idempotent; operations on a closed guard return
// [ErrGuardClosed].
func (g *Guard) Close() {
	g.closeOnce.Do(func() {
		g.closed.Store(true)
		if g.sweepDone != nil {
			close(g.sweepDone)
			g.sweepWG.Wait()
		}
		g.audit.Close()
		_ = g.windows.Close()
		_ = g.lockouts.Close()
	})
}

func (g *Guard) startSweeper() {
	g.sweepDone = make(chan struct{})
	g.sweepWG.Add(1)

	go func() {
		defer g.sweepWG.Done()

		ticker := time.NewTicker(g.config.Sweep.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				g.SweepNow(context.Background())
			case <-g.sweepDone:
				return
			}
		}
	}()
}

func (g *Guard) emit(ctx context.Context, event AuditEvent) {
	if g.audit == nil {
		return
	}
	event.EventID = uuid.NewString()
	event.Timestamp = g.now()
	g.audit.Emit(ctx, event)
}

// bucketKey scopes window counters per (identity, route) pair.
func bucketKey(clientKey, route string) string {
	return route + "|" + clientKey
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
