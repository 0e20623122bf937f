package inflight

import (
	"sync"
	"time"
)

// DefaultSeenTTL is how long a key stays marked after it was seen.
const DefaultSeenTTL = 60 * time.Second

// SeenCache remembers keys for a fixed TTL.
// Expired entries are swept lazily on Mark.
type SeenCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time // key -> expiry
}

// NewSeenCache creates a cache with the given TTL (DefaultSeenTTL if <= 0).
func NewSeenCache(ttl time.Duration) *SeenCache {
	return NewSeenCacheWithClock(ttl, time.Now)
}

// NewSeenCacheWithClock creates a cache using now as its clock.
func NewSeenCacheWithClock(ttl time.Duration, now func() time.Time) *SeenCache {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SeenCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]time.Time),
	}
}

// Mark records key. Returns true if key was not already marked within the TTL.
func (c *SeenCache) Mark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)

	if expiry, ok := c.entries[key]; ok && now.Before(expiry) {
		return false
	}
	c.entries[key] = now.Add(c.ttl)
	return true
}

// Seen reports whether key is currently marked.
func (c *SeenCache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.entries[key]
	return ok && c.now().Before(expiry)
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SeenCache) sweep(now time.Time) {
	for key, expiry := range c.entries {
		if !now.Before(expiry) {
			delete(c.entries, key)
		}
	}
}
