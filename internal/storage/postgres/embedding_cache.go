// Package postgres implements the embedding cache on PostgreSQL with the
// pgvector extension, for runs that share a cache across machines.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/benjaminbreen/premodern-concordance/internal/storage"
)

// EmbeddingCache implements storage.EmbeddingCache using PostgreSQL.
// Vectors are stored in a pgvector column so the cache doubles as a
// queryable vector store for offline analysis.
type EmbeddingCache struct {
	db *sql.DB
}

// NewEmbeddingCache connects to PostgreSQL, ensures the pgvector
// extension and cache table exist, and returns the cache.
func NewEmbeddingCache(dsn string) (*EmbeddingCache, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			content_key TEXT PRIMARY KEY,
			embedding   vector NOT NULL,
			dimension   INTEGER NOT NULL,
			model       TEXT NOT NULL,
			created_at  TIMESTAMPTZ DEFAULT now()
		)
	`); err != nil {
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

	var vec pgvector.Vector
	var dimension int
	err := c.db.QueryRowContext(ctx,
		`SELECT embedding, dimension FROM embeddings WHERE content_key = $1`, key,
	).Scan(&vec, &dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding: %w", err)
	}

	out := vec.Slice()
	if len(out) != dimension {
		return nil, fmt.Errorf("corrupt embedding for key %s: length %d, recorded dimension %d",
			key, len(out), dimension)
	}
	return out, nil
}

// Put stores a vector under a content key; existing keys are left alone.
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
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_key) DO NOTHING
	`, key, pgvector.NewVector(vector), len(vector), model)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

var _ storage.EmbeddingCache = (*EmbeddingCache)(nil)
