// internal/ratelimit/redis.go
//
// Redis-backed counter store for multi-process deployments.  INCR carries
// the atomicity; the window TTL is attached when the bucket is first
// created.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store over a shared Redis instance.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	cnt, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if cnt == 1 {
		s.client.Expire(ctx, key, ttl)
	}
	return cnt, nil
}

func (s *RedisStore) Decr(ctx context.Context, key string) error {
	return s.client.Decr(ctx, key).Err()
}
