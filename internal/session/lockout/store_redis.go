package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"complyscan/pkg/requestcontext"
)

const redisPrefix = "complyscan:lockout:"

// RedisStore shares counters between BFF replicas. The failure counter
// expires with its window and the lock key with the lock.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func failuresKey(identifier string) string { return redisPrefix + "failures:" + identifier }
func lockKey(identifier string) string     { return redisPrefix + "lock:" + identifier }

func (s *RedisStore) RecordFailure(ctx context.Context, identifier string, window time.Duration) (*Record, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, failuresKey(identifier))
		pipe.ExpireNX(ctx, failuresKey(identifier), window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record sign-in failure: %w", err)
	}
	rec, err := s.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &Record{Identifier: identifier}
	}
	rec.Failures = int(incr.Val())
	return rec, nil
}

func (s *RedisStore) Get(ctx context.Context, identifier string) (*Record, error) {
	failures, err := s.client.Get(ctx, failuresKey(identifier)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get sign-in failures: %w", err)
	}
	ttl, err := s.client.PTTL(ctx, lockKey(identifier)).Result()
	if err != nil {
		return nil, fmt.Errorf("get sign-in lock: %w", err)
	}
	if failures == 0 && ttl <= 0 {
		return nil, nil
	}
	rec := &Record{Identifier: identifier, Failures: failures}
	if ttl > 0 {
		rec.LockedUntil = requestcontext.Now(ctx).Add(ttl)
	}
	return rec, nil
}

func (s *RedisStore) Lock(ctx context.Context, identifier string, until time.Time) error {
	ttl := until.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, lockKey(identifier), 1, ttl).Err(); err != nil {
		return fmt.Errorf("lock sign-in: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, failuresKey(identifier), lockKey(identifier)).Err(); err != nil {
		return fmt.Errorf("clear sign-in failures: %w", err)
	}
	return nil
}
