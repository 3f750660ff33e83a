// Package cache provides translation caching implementations.
//
// Keys are built by shoptl.CacheKey from the hash of the masked field text
// and the target language; values are the raw translator output before
// unmasking, so a cached entry stays valid when restore options change.
package cache

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}

// Snapshotter is implemented by caches that can be saved to a cache file.
type Snapshotter interface {
	TranslationCache
	// Snapshot returns all live entries.
	Snapshot() (map[string]string, error)
}
