package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCache is an in-memory EmbeddingCache used by tests and by runs
// that deliberately skip persistence.
type MemoryCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{vectors: make(map[string][]float32)}
}

// Get returns the cached vector for a content key, or ErrNotFound.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]float32, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: content key is required", ErrInvalidInput)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.vectors[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, nil
}

// Put stores a vector under a content key. First write wins.
func (c *MemoryCache) Put(ctx context.Context, key string, vector []float32, model string) error {
	if key == "" {
		return fmt.Errorf("%w: content key is required", ErrInvalidInput)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", ErrInvalidInput)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vectors[key]; ok {
		return nil
	}
	stored := make([]float32, len(vector))
	copy(stored, vector)
	c.vectors[key] = stored
	return nil
}

// Len returns the number of cached vectors.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Close is a no-op for the in-memory backend.
func (c *MemoryCache) Close() error { return nil }

var _ EmbeddingCache = (*MemoryCache)(nil)
