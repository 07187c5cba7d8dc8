// Package sqlite implements the embedding cache on a local SQLite file,
// the default backend for single-machine pipeline runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/benjaminbreen/premodern-concordance/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
	content_key TEXT PRIMARY KEY,
	embedding   BLOB NOT NULL,
	dimension   INTEGER NOT NULL,
	model       TEXT NOT NULL,
	created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// EmbeddingCache implements storage.EmbeddingCache using SQLite. Vectors
// are serialized as little-endian float32 BLOBs.
type EmbeddingCache struct {
	db *sql.DB
}

// NewEmbeddingCache opens (creating if needed) the cache database at path.
func NewEmbeddingCache(path string) (*EmbeddingCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under the concurrent embedding workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &EmbeddingCache{db: db}, nil
}

// Get returns the cached vector for a content key, or storage.ErrNotFound.
func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float32, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: content key is required", storage.ErrInvalidInput)
	}

	var blob []byte
	var dimension int
	err := c.db.QueryRowContext(ctx,
		`SELECT embedding, dimension FROM embeddings WHERE content_key = ?`, key,
	).Scan(&blob, &dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding: %w", err)
	}

	vec, err := deserializeVector(blob)
	if err != nil {
		return nil, err
	}
	if len(vec) != dimension {
		return nil, fmt.Errorf("corrupt embedding for key %s: length %d, recorded dimension %d",
			key, len(vec), dimension)
	}
	return vec, nil
}

// Put stores a vector under a content key. ON CONFLICT DO NOTHING keeps
// the cache append-only and concurrent writes idempotent.
func (c *EmbeddingCache) Put(ctx context.Context, key string, vector []float32, model string) error {
	if key == "" {
		return fmt.Errorf("%w: content key is required", storage.ErrInvalidInput)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO embeddings (content_key, embedding, dimension, model)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_key) DO NOTHING
	`, key, serializeVector(vector), len(vector), model)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

func serializeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func deserializeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob: %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

var _ storage.EmbeddingCache = (*EmbeddingCache)(nil)
