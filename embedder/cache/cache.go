// Package cache wraps an Embedder with a ristretto cache. The matcher
// and the search tools frequently embed the same objective or query text
// within one session; caching avoids re-running the model for those.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/skyelabs/skye-agent/embedder"
)

// Embedder decorates an inner embedder with an in-process cache keyed by
// the exact input text.
type Embedder struct {
	inner embedder.Embedder
	cache *ristretto.Cache
}

// New creates a caching embedder holding at most maxEntries vectors.
func New(inner embedder.Embedder, maxEntries int64) (*Embedder, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Embedder{inner: inner, cache: c}, nil
}

// Embed returns the cached vector for text, or computes and caches it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec, 1)
	return vec, nil
}

// Dimensions returns the inner embedder's vector size.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close releases the cache's resources.
func (e *Embedder) Close() {
	e.cache.Close()
}
