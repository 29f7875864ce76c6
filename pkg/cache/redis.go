package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a shared Redis instance. Expiry is delegated
// to Redis key TTLs, which gives the same lazy-removal semantics as the
// in-memory backend.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store.
func NewRedis(client *redis.Client) *Redis {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &Redis{client: client}
}

// Get returns the value for key, or ErrMiss when absent or expired.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			misses.WithLabelValues("redis").Inc()
			return nil, ErrMiss
		}
		storeErrors.WithLabelValues("redis", "get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	hits.WithLabelValues("redis").Inc()
	return data, nil
}

// Set stores value under key for ttlSeconds. A non-positive ttlSeconds
// deletes any existing entry instead.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if ttlSeconds <= 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			storeErrors.WithLabelValues("redis", "delete").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
		return nil
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		storeErrors.WithLabelValues("redis", "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
