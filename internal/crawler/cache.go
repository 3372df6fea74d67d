// internal/crawler/cache.go
package crawler

import (
	"encoding/json"
	"sync"
	"time"

	"hempex-matching/internal/models"
)

// ResultCache short-circuits repeated identical connector queries within a
// TTL window. Expiry is lazy: stale entries are evicted on the next read, no
// background sweep. The cache is injected into the crawler rather than held
// as package state.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	storedAt time.Time
	value    []models.Candidate
}

func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached candidates for key when present and fresh. A stale
// entry is evicted and reported as absent.
func (c *ResultCache) Get(key string) ([]models.Candidate, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if current, still := c.entries[key]; still && c.now().Sub(current.storedAt) > c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set stores candidates under key, overwriting any prior entry.
func (c *ResultCache) Set(key string, value []models.Candidate) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{storedAt: c.now(), value: value}
	c.mu.Unlock()
}

// Len reports the number of live and stale entries currently held.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheKey derives the cache key for one connector task. Criteria are
// serialized with encoding/json, whose struct field order is fixed, so
// identical criteria always produce identical keys.
func CacheKey(connectorName string, criteria models.SearchCriteria) string {
	serialized, err := json.Marshal(criteria)
	if err != nil {
		return connectorName + "|"
	}
	return connectorName + "|" + string(serialized)
}
