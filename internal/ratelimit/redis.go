package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts windows in Redis so the budget is shared across
// processes. The window TTL is set on the first hit only, which keeps
// the fixed-window anchor on the request that opened it.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore returns a store over an existing client. The caller
// owns the client lifecycle.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Decision{Allowed: true, Remaining: limit - 1, ResetIn: window}, nil
	}

	resetIn, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if resetIn < 0 {
		// Counter outlived its TTL (crash between INCR and PEXPIRE).
		// Re-arm instead of leaking a permanent window.
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		resetIn = window
	}

	if int(count) > limit {
		return Decision{Allowed: false, Remaining: 0, ResetIn: resetIn}, nil
	}
	return Decision{Allowed: true, Remaining: limit - int(count), ResetIn: resetIn}, nil
}

// Close implements Store. The shared client is left open.
func (s *RedisStore) Close() {}
