package shoptl

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText computes the SHA-256 hash of text. Whitespace is significant:
// field values are translated whole, including leading and trailing space.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates a cache key from a text hash and target language.
func CacheKey(hash, targetLang string) string {
	return hash + ":" + targetLang
}

// CacheKeyExtended also keys on the source language and a namespace naming
// the translator (provider and model), so cache entries shared across runs
// never cross services.
func CacheKeyExtended(hash, sourceLang, targetLang, namespace string) string {
	return hash + ":" + sourceLang + ":" + targetLang + ":" + namespace
}
