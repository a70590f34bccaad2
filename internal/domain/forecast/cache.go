package forecast

import (
	"fmt"
	"sync"
	"time"
)

// Cache is the in-process forecast cache. Keys are coordinates rounded to
// four decimals, so requests within ~11 meters share an entry. One mutex
// guards the whole map; entries are only replaced on expired lookups, never
// evicted, so the map grows with the number of distinct locations seen.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	payload   *Payload
	expiresAt time.Time
}

// NewCache builds a cache. A non-positive ttl disables caching entirely:
// lookups always miss and stores are dropped.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// CacheKey renders the canonical key for a coordinate pair.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f:%.4f", lat, lon)
}

// TTL reports the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Lookup returns a deep copy of the cached payload and its expiry. Expired
// entries are removed on the way out.
func (c *Cache) Lookup(lat, lon float64) (*Payload, time.Time, bool) {
	if c.ttl <= 0 {
		return nil, time.Time{}, false
	}
	key := CacheKey(lat, lon)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, time.Time{}, false
	}
	return entry.payload.Clone(), entry.expiresAt, true
}

// Store caches a deep copy of payload under the rounded key, overwriting any
// previous entry, and returns the entry expiry. With caching disabled it
// stores nothing and the returned time is now.
func (c *Cache) Store(lat, lon float64, payload *Payload) time.Time {
	if c.ttl <= 0 {
		return time.Now()
	}
	key := CacheKey(lat, lon)
	expiresAt := time.Now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{payload: payload.Clone(), expiresAt: expiresAt}
	return expiresAt
}

// Len reports the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
