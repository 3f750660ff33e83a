package cache

// TieredCache reads through a fast local cache in front of a shared one.
// Hits in the shared cache are copied into the local cache.
type TieredCache struct {
	local  TranslationCache
	shared TranslationCache
}

// NewTieredCache creates a cache that checks local before shared.
func NewTieredCache(local, shared TranslationCache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

// Get looks up key in the local cache, then the shared cache.
func (c *TieredCache) Get(key string) (string, bool) {
	if val, ok := c.local.Get(key); ok {
		return val, true
	}
	val, ok := c.shared.Get(key)
	if ok {
		_ = c.local.Set(key, val)
	}
	return val, ok
}

// Set writes key to both caches. The shared error, if any, is returned.
func (c *TieredCache) Set(key string, value string) error {
	_ = c.local.Set(key, value)
	return c.shared.Set(key, value)
}

// Snapshot merges snapshots of both tiers; local entries win.
func (c *TieredCache) Snapshot() (map[string]string, error) {
	result := make(map[string]string)
	for _, tier := range []TranslationCache{c.shared, c.local} {
		s, ok := tier.(Snapshotter)
		if !ok {
			continue
		}
		entries, err := s.Snapshot()
		if err != nil {
			return nil, err
		}
		for k, v := range entries {
			result[k] = v
		}
	}
	return result, nil
}

// Verify TieredCache implements Snapshotter
var _ Snapshotter = (*TieredCache)(nil)
