package cache

import (
	"sync"
	"time"
)

type ttlEntry struct {
	body    []byte
	expires time.Time
}

// TTLCache is the in-process fallback when redis is not configured. Expired
// entries are dropped lazily on read and pruned on write.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry
}

func NewTTLCache() *TTLCache {
	return &TTLCache{entries: make(map[string]ttlEntry)}
}

var _ BytesCache = (*TTLCache)(nil)

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.body, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.pruneLocked()
	c.entries[key] = ttlEntry{body: value, expires: expires}
	c.mu.Unlock()
	return nil
}

// pruneLocked sweeps expired entries. Caller holds the write lock. The
// handler's key space is small (one key per endpoint per query shape), so a
// full sweep per write stays cheap.
func (c *TTLCache) pruneLocked() {
	now := time.Now()
	for key, e := range c.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(c.entries, key)
		}
	}
}
