package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Store backed by a mutex-guarded map. It is safe
// for concurrent use by multiple in-flight requests.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry

	// now is swappable in tests.
	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Get returns the value for key, or ErrMiss when absent or expired.
// An expired entry is deleted before reporting the miss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()

	if !ok {
		misses.WithLabelValues("memory").Inc()
		return nil, ErrMiss
	}

	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// stored a fresh entry since the read above.
		if current, ok := m.items[key]; ok && m.now().After(current.expiresAt) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		misses.WithLabelValues("memory").Inc()
		return nil, ErrMiss
	}

	hits.WithLabelValues("memory").Inc()
	return entry.data, nil
}

// Set stores value under key for ttlSeconds. A non-positive ttlSeconds
// deletes any existing entry instead.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttlSeconds <= 0 {
		delete(m.items, key)
		return nil
	}

	m.items[key] = memoryEntry{
		data:      value,
		expiresAt: m.now().Add(time.Duration(ttlSeconds) * time.Second),
	}
	return nil
}

// Len returns the number of stored entries, including not-yet-collected
// expired ones.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
