// Package cache provides a small in-memory TTL cache. The display endpoint
// uses it so a polling frontend does not rebuild the same view every request.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value any
	exp   time.Time
}

// TTLCache maps string keys to values that expire lazily on read.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewTTLCache() *TTLCache {
	return &TTLCache{entries: make(map[string]entry)}
}

// Get returns the cached value for key, expiring it if its TTL has passed.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A zero ttl means no expiry.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, exp: exp}
	c.mu.Unlock()
}

// Delete removes key if present.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
