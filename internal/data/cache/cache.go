// Package cache is the keyed response cache shared by all market
// accessors. Entries past TTL are reported as misses but kept around:
// the fetcher reuses them as a degraded-mode fallback when every
// network path is down. Sweep is the only eviction.
package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type entry struct {
	payload  json.RawMessage
	storedAt time.Time
}

// Cache is a TTL response cache keyed by request identity.
type Cache struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]entry
}

// New builds a cache with the given freshness TTL.
func New(clk clock.Clock, ttl time.Duration) *Cache {
	return &Cache{
		clock:   clk,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Get returns the payload for key if it is still fresh. A stale entry
// reports a miss but is not deleted.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.clock.Now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.payload, true
}

// GetStale returns the payload for key regardless of age.
func (c *Cache) GetStale(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.payload, true
}

// Put stores payload under key, overwriting any previous entry.
func (c *Cache) Put(key string, payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{payload: payload, storedAt: c.clock.Now()}
}

// Sweep deletes every entry older than maxAge and returns how many were
// removed. maxAge is typically longer than the read TTL, it bounds
// memory rather than freshness.
func (c *Cache) Sweep(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) > maxAge {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
