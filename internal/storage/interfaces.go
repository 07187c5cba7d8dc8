// Package storage provides the content-addressed embedding cache shared
// by the pipeline stages. The cache is append-only and keyed by a hash of
// the embedded text, so re-runs skip unchanged entities and concurrent
// writes of the same key are idempotent.
//
// The cache is passed by reference into each stage rather than held as a
// process-wide singleton, so tests substitute the in-memory backend.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrNotFound is returned when a content key has no cached embedding.
var ErrNotFound = errors.New("embedding not found")

// ErrInvalidInput is returned for malformed cache operations.
var ErrInvalidInput = errors.New("invalid input")

// EmbeddingCache stores one vector per content key. Put never overwrites:
// a key's vector is derived from the key's content, so the first write
// wins and later identical writes are no-ops.
type EmbeddingCache interface {
	// Get returns the cached vector for a content key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]float32, error)

	// Put stores a vector under a content key. Writing an existing key is
	// a no-op, making concurrent writes idempotent without locking.
	Put(ctx context.Context, key string, vector []float32, model string) error

	// Close releases backend resources.
	Close() error
}

// ContentKey derives the cache key for an entity's embedded text: a hex
// sha256 over the normalized (lowercased, space-collapsed) parts. Any
// change to name, variants or context produces a new key.
func ContentKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		normalized := strings.Join(strings.Fields(strings.ToLower(p)), " ")
		h.Write([]byte(normalized))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
