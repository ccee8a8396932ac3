// Package cache defines the output cache contract. The cache is a volatile,
// TTL-bound mirror of terminal task views; it is never authoritative and
// every caller must tolerate misses, evictions and an absent backend.
package cache

import (
	"context"
	"time"
)

// Cache is the contract for the output cache. Values are opaque text; the
// caller owns (de)serialization. Implementations must be safe for
// concurrent use.
// Version: 1.0
type Cache interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes the value stored under key, if any.
	Delete(ctx context.Context, key string) error
}

// OutputKey returns the key under which a task's terminal output view is
// cached. The read path and the invalidation path must agree on this.
func OutputKey(taskID string) string {
	return "task_output:" + taskID
}

// Noop is a Cache with no backend: every read misses and every write is
// dropped. Used when no cache backend is configured so callers never have
// to branch on cache availability.
type Noop struct{}

// Get always reports a miss.
func (Noop) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

// Set drops the value.
func (Noop) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return nil
}

// Delete is a no-op.
func (Noop) Delete(ctx context.Context, key string) error {
	return nil
}

var _ Cache = Noop{}
