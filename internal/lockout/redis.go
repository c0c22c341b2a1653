package lockout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAttempts    = "attempts"
	fieldLastAttempt = "last_attempt"
	fieldLockedUntil = "locked_until"
)

// lockTTLSlack keeps a locked record readable slightly past its
// deadline so Check can observe the expiry instead of racing it.
const lockTTLSlack = 30 * time.Minute

// RedisStore persists lockout records as one hash per account key, so
// every instance behind a load balancer sees the same attempt count.
// Record lifetime is enforced with key TTLs; there is no janitor.
type RedisStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewRedisStore returns a store over an existing client. retention <= 0
// uses DefaultRetention for unlocked records.
func NewRedisStore(client redis.UniversalClient, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{client: client, retention: retention}
}

func lockKey(key string) string {
	return "lockout:" + key
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	fields, err := s.client.HGetAll(ctx, lockKey(key)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return Record{}, false, nil
	}
	return recordFromFields(fields), true, nil
}

// RecordFailure implements Store. HIncrBy makes the count race-free
// across instances; HSetNX keeps the first written lock deadline when
// two instances cross the threshold in the same instant.
func (s *RedisStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockFor time.Duration) (Record, error) {
	k := lockKey(key)

	attempts, err := s.client.HIncrBy(ctx, k, fieldAttempts, 1).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec := Record{Attempts: int(attempts), LastAttempt: now}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldLastAttempt, now.Unix())
		if int(attempts) >= threshold {
			pipe.HSetNX(ctx, k, fieldLockedUntil, now.Add(lockFor).Unix())
			pipe.Expire(ctx, k, lockFor+lockTTLSlack)
		} else {
			pipe.Expire(ctx, k, s.retention)
		}
		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if int(attempts) >= threshold {
		until, err := s.client.HGet(ctx, k, fieldLockedUntil).Result()
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		rec.LockedUntil = unixField(until)
	}
	return rec, nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close implements Store. The shared client is left open.
func (s *RedisStore) Close() {}

func recordFromFields(fields map[string]string) Record {
	var rec Record
	if v, ok := fields[fieldAttempts]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			rec.Attempts = n
		}
	}
	if v, ok := fields[fieldLastAttempt]; ok {
		rec.LastAttempt = unixField(v)
	}
	if v, ok := fields[fieldLockedUntil]; ok {
		rec.LockedUntil = unixField(v)
	}
	return rec
}

func unixField(v string) time.Time {
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil || sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
