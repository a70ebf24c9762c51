// Package cache provides the layered memory+disk cache used to memoize
// embedding vectors across runs. Caching is safe because vectors are
// deterministic for a fixed model and text.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// EmbeddingKey generates a cache key for one text under one embedding
// model. The model name is part of the key so a model change never
// serves stale vectors.
func EmbeddingKey(model, text string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + text))
	return "spaceradar:v1:" + hex.EncodeToString(hash[:])
}
