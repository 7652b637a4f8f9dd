package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTracker shares failure streaks across processes through Redis.
// Each identity maps to two keys: a failure counter whose TTL is the
// attempt window, and a lock marker whose TTL is the lockout duration.
// Redis key expiry stands in for both the streak window and the lockout
// deadline, so no sweep is needed.
type RedisTracker struct {
	redis  redis.UniversalClient
	config Config
	prefix string
}

// NewRedisTracker creates a Redis-backed [Tracker]. The prefix namespaces
// the tracker's keys; empty defaults to "bfl".
func NewRedisTracker(client redis.UniversalClient, cfg Config, prefix string) *RedisTracker {
	if prefix == "" {
		prefix = "bfl"
	}
	return &RedisTracker{redis: client, config: cfg, prefix: prefix}
}

func (t *RedisTracker) counterKey(identity string) string {
	return t.prefix + ":c:" + identity
}

func (t *RedisTracker) lockKey(identity string) string {
	return t.prefix + ":l:" + identity
}

// RecordFailure counts one failed attempt against identity.
func (t *RedisTracker) RecordFailure(ctx context.Context, identity string) (Outcome, error) {
	ttl, err := t.redis.PTTL(ctx, t.lockKey(identity)).Result()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
	}

	count, err := t.increment(ctx, identity)
	if err != nil {
		return Outcome{}, err
	}

	// An existing lock marker holds regardless of the counter; its TTL is
	// never refreshed by further failures.
	if ttl > 0 {
		return Outcome{Blocked: true, Count: count}, nil
	}

	if count >= t.config.MaxAttempts {
		created, err := t.redis.SetNX(ctx, t.lockKey(identity), "1", t.config.LockoutDuration).Result()
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
		}
		return Outcome{Blocked: true, Triggered: created, Count: count}, nil
	}

	return Outcome{Count: count}, nil
}

func (t *RedisTracker) increment(ctx context.Context, identity string) (int, error) {
	key := t.counterKey(identity)

	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
	}

	// TTL is set only on the first failure so the counter auto-resets
	// after the attempt window.
	if count == 1 {
		if err := t.redis.Expire(ctx, key, t.config.AttemptWindow).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
		}
	}

	return int(count), nil
}

// RecordSuccess deletes the identity's streak unconditionally.
func (t *RedisTracker) RecordSuccess(ctx context.Context, identity string) error {
	if err := t.redis.Del(ctx, t.counterKey(identity), t.lockKey(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
	}
	return nil
}

// IsBlocked reports whether an active lock marker exists.
func (t *RedisTracker) IsBlocked(ctx context.Context, identity string) (bool, error) {
	ttl, err := t.redis.PTTL(ctx, t.lockKey(identity)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
	}
	return ttl > 0, nil
}

// RemainingLockout returns the lock marker's remaining TTL.
func (t *RedisTracker) RemainingLockout(ctx context.Context, identity string) (time.Duration, error) {
	ttl, err := t.redis.PTTL(ctx, t.lockKey(identity)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// FailureCount returns the counter value; missing keys read as zero.
func (t *RedisTracker) FailureCount(ctx context.Context, identity string) (int, error) {
	count, err := t.redis.Get(ctx, t.counterKey(identity)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
	}
	return int(count), nil
}

// Unblock clears both the lockout and the streak. Idempotent.
func (t *RedisTracker) Unblock(ctx context.Context, identity string) error {
	return t.RecordSuccess(ctx, identity)
}

// State classifies the identity as clear, accumulating, or locked.
func (t *RedisTracker) State(ctx context.Context, identity string) (State, error) {
	blocked, err := t.IsBlocked(ctx, identity)
	if err != nil {
		return StateClear, err
	}
	if blocked {
		return StateLocked, nil
	}

	count, err := t.FailureCount(ctx, identity)
	if err != nil {
		return StateClear, err
	}
	if count > 0 {
		return StateAccumulating, nil
	}
	return StateClear, nil
}

// DeleteExpired is a no-op: Redis evicts expired keys itself.
func (t *RedisTracker) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (t *RedisTracker) Close() error {
	return nil
}
