package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsCache is a short-lived cache for aggregated campaign statistics.
// A miss returns (false, nil).
type StatsCache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// RedisStatsCache implements StatsCache on Redis. A nil client degrades
// to a cache that always misses, so callers never need a Redis instance
// in tests or single-node deployments.
type RedisStatsCache struct {
	client *redis.Client
	prefix string
}

// NewRedisStatsCache creates a stats cache backed by the given Redis client
func NewRedisStatsCache(client *redis.Client, prefix string) *RedisStatsCache {
	return &RedisStatsCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisStatsCache) key(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

func (c *RedisStatsCache) Get(ctx context.Context, key string, out any) (bool, error) {
	if c.client == nil {
		return false, nil
	}

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}

	return true, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for cache key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}

	return nil
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache key %s: %w", key, err)
	}

	return nil
}
