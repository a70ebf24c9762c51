package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"spaceradar/internal/cache"
)

// Cached wraps an embedder with the layered vector cache. Hits return
// the stored vector byte-for-byte; misses are batched into one inner
// call and written back.
type Cached struct {
	inner Embedder
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps inner with c.
func NewCached(inner Embedder, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Name returns the inner embedder's identity.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Embed serves what it can from the cache and delegates the rest.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		key := cache.EmbeddingKey(c.inner.Name(), text)
		if data, ok := c.cache.Get(key); ok {
			var v []float32
			if err := json.Unmarshal(data, &v); err == nil {
				vectors[i] = v
				continue
			}
			// Unreadable entry: drop it and recompute.
			_ = c.cache.Delete(key)
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	for j, v := range fresh {
		i := missIdx[j]
		vectors[i] = v

		if data, err := json.Marshal(v); err == nil {
			key := cache.EmbeddingKey(c.inner.Name(), texts[i])
			_ = c.cache.Set(key, data, c.ttl)
		}
	}

	return vectors, nil
}
