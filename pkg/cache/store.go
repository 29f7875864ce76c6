// Package cache provides TTL key-value stores for derived GitHub data
// with in-memory and Redis backends.
package cache

import (
	"context"
	"errors"
)

// ErrMiss indicates the requested key was not found or has expired.
var ErrMiss = errors.New("cache miss")

// Store is a key-value store with per-entry expiry. Both backends take a
// context so an in-process store and a networked one are interchangeable
// at every call site.
//
// Entries are removed lazily: an expired entry is deleted by the next Get
// for its key, never by a background sweep. There is no eviction beyond
// expiry, so memory growth is unbounded for the lifetime of the process.
type Store interface {
	// Get returns the value stored under key, or ErrMiss when the key is
	// absent or its entry has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttlSeconds, overwriting any prior
	// entry unconditionally (last-writer-wins). A non-positive ttlSeconds
	// deletes any existing entry and stores nothing.
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}
