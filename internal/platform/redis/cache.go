// Package redis implements the output cache contract on a Redis backend.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/tasker-api/internal/cache"
)

// keyPrefix namespaces every key so unrelated consumers of the same Redis
// instance cannot collide with us.
const keyPrefix = "tasker:"

// Cache implements cache.Cache using Redis. All values are stored as text
// with a TTL.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a Cache connected to the Redis instance at the given URL
// (e.g. "redis://localhost:6379/0").
func New(url string, logger *slog.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return &Cache{
		client: redis.NewClient(opts),
		logger: logger.With("component", "redis_cache"),
	}, nil
}

// Ping verifies connectivity to the backend.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// makeKey creates the namespaced cache key.
func makeKey(key string) string {
	return keyPrefix + key
}

// Get returns the value stored under key. A missing key is a miss, not an
// error. Hit/miss accounting lives with the caller, which also sees misses
// served by the no-op cache.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, makeKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache get failed: %w", err)
	}

	return value, true, nil
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, makeKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete removes the value stored under key, if any.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, makeKey(key)).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

var _ cache.Cache = (*Cache)(nil)
