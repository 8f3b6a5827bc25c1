// Package cache provides a simple in-memory cache with a fresh window and
// a hard TTL. In production, this could be backed by Redis.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// InMemory is a thread-safe in-memory cache. Entries are fresh for the
// freshFor window, then stale-but-usable until the hard TTL, then gone.
type InMemory[T any] struct {
	mu       sync.RWMutex
	items    map[string]entry[T]
	freshFor time.Duration
	ttl      time.Duration
}

// New creates a new in-memory cache. freshFor must not exceed ttl.
func New[T any](freshFor, ttl time.Duration) *InMemory[T] {
	c := &InMemory[T]{
		items:    make(map[string]entry[T]),
		freshFor: freshFor,
		ttl:      ttl,
	}
	// Background cleanup goroutine
	go c.cleanup()
	return c
}

// Get retrieves a fresh value from the cache. Returns false if not found,
// stale or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	v, fresh, ok := c.GetStale(key)
	if !ok || !fresh {
		var zero T
		return zero, false
	}
	return v, true
}

// GetStale retrieves a value that may be past its fresh window but is still
// within the hard TTL. fresh reports whether the entry is inside the fresh
// window; ok is false only when the entry is absent or fully expired.
func (c *InMemory[T]) GetStale(key string) (value T, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.items[key]
	if !found {
		var zero T
		return zero, false, false
	}
	age := time.Since(e.storedAt)
	if age > c.ttl {
		var zero T
		return zero, false, false
	}
	return e.value, age <= c.freshFor, true
}

// Set stores a value in the cache, resetting its age.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:    value,
		storedAt: time.Now(),
	}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// cleanup periodically removes fully expired entries.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for k, v := range c.items {
			if now.Sub(v.storedAt) > c.ttl {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}
}
