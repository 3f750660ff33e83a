package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time // zero means never
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// InMemoryCache is a thread-safe in-memory cache with TTL support.
// It lives for one run unless saved with SaveFile.
type InMemoryCache struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
// If ttlSeconds is 0 or negative, entries never expire.
func NewInMemoryCache(ttlSeconds int) *InMemoryCache {
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &InMemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a value from the cache.
// Expired entries are removed and reported as misses.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if entry.expired(c.now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}

	return entry.value, true
}

// Set stores a value in the cache.
func (c *InMemoryCache) Set(key string, value string) error {
	entry := memoryEntry{value: value}
	if c.ttl > 0 {
		entry.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries from the cache.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// Entries returns all live entries as key-value pairs.
func (c *InMemoryCache) Entries() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	result := make(map[string]string, len(c.entries))
	for key, entry := range c.entries {
		if entry.expired(now) {
			continue
		}
		result[key] = entry.value
	}
	return result
}

// Snapshot implements Snapshotter.
func (c *InMemoryCache) Snapshot() (map[string]string, error) {
	return c.Entries(), nil
}

// Verify InMemoryCache implements Snapshotter
var _ Snapshotter = (*InMemoryCache)(nil)
