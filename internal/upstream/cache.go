package upstream

import (
	"encoding/json"
	"sync"
	"time"
)

type cacheEntry struct {
	data     json.RawMessage
	storedAt time.Time
	ttl      time.Duration
}

// Cache keeps the last good response per "<api>:<path>" key. Entries are
// never evicted on expiry; an expired entry may still be served as a
// stale fallback when every live endpoint has failed. Growth is bounded
// only by the number of distinct (api, path) pairs the bot requests.
type Cache struct {
	mutex   sync.RWMutex
	entries map[string]cacheEntry
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) Put(key string, data json.RawMessage, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = cacheEntry{
		data:     data,
		storedAt: time.Now(),
		ttl:      ttl,
	}
}

// Fresh returns the entry for key only if it is still within its TTL.
func (c *Cache) Fresh(key string) (json.RawMessage, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) >= entry.ttl {
		return nil, false
	}
	return entry.data, true
}

// Any returns the entry for key regardless of age.
func (c *Cache) Any(key string) (json.RawMessage, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.data, true
}

func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}
