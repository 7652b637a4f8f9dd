package window

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares fixed-window counters across processes through Redis.
// Each bucket key maps to a counter with a TTL equal to the window: INCR
// creates it, EXPIRE on the first hit opens the window, and Redis expiry
// closes it.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed [Store]. The prefix namespaces the
// guard's keys within a shared Redis instance; empty defaults to "rlw".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rlw"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(bucket string) string {
	return s.prefix + ":" + bucket
}

// Check records one request against key under the given limit.
func (s *RedisStore) Check(ctx context.Context, key string, limit Limit) (Decision, error) {
	if limit.Window <= 0 || limit.Max <= 0 {
		return Decision{}, ErrInvalidLimit
	}

	rkey := s.key(key)

	count, err := s.redis.Incr(ctx, rkey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Fixed-window semantics: the TTL is set only for the first hit in
	// the window.
	if count == 1 {
		if err := s.redis.Expire(ctx, rkey, limit.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	ttl, err := s.redis.PTTL(ctx, rkey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		// Counter lost its TTL (flushed or raced with expiry); treat the
		// full window as remaining rather than denying forever.
		ttl = limit.Window
	}
	resetAt := time.Now().Add(ttl)

	if count > int64(limit.Max) {
		return Decision{
			Allowed:    false,
			Count:      int(count),
			ResetAt:    resetAt,
			RetryAfter: ttl,
		}, nil
	}

	remaining := limit.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Count:     int(count),
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Reset removes the counter for key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ResetAll removes every counter under the store's prefix.
func (s *RedisStore) ResetAll(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, s.prefix+":*", 256).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts expired counters itself.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}
