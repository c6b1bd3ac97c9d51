package utils

import (
	"sync"
	"time"
)

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// MemoryCache is an in-memory cache with per-item expiration
type MemoryCache[V any] struct {
	items map[string]cacheItem[V]
	mu    sync.RWMutex
	now   func() time.Time
}

// NewMemoryCache creates an empty cache
func NewMemoryCache[V any]() *MemoryCache[V] {
	return &MemoryCache[V]{
		items: make(map[string]cacheItem[V]),
		now:   time.Now,
	}
}

// Set stores a value in cache with expiration
func (c *MemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem[V]{value: value, expiration: c.now().Add(ttl)}
}

// Get retrieves a live value. Expired items are dropped on read.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}
	if c.now().After(item.expiration) {
		c.Delete(key)
		return zero, false
	}
	return item.value, true
}

// GetOrLoad returns the cached value or stores the result of load
func (c *MemoryCache[V]) GetOrLoad(key string, ttl time.Duration, load func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := load()
	c.Set(key, v, ttl)
	return v
}

// Delete removes an item from cache
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Purge removes expired items
func (c *MemoryCache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
		}
	}
}

// Size returns the number of items in cache, expired or not
func (c *MemoryCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
