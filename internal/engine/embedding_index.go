package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/benjaminbreen/premodern-concordance/internal/corpus"
	"github.com/benjaminbreen/premodern-concordance/internal/llm"
	"github.com/benjaminbreen/premodern-concordance/internal/storage"
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

const embedRetries = 3

// EmbeddingIndex holds one cross-lingual embedding per entity. It is
// built once per run, then read-only: the candidate generator, decision
// engine, enrichment resolver and neighbor graph all share it.
type EmbeddingIndex struct {
	vectors map[string][]float32 // entity ID -> vector
	model   string
}

// composedText concatenates the primary name, a bounded number of
// variants and the most informative context, so the vector captures both
// orthographic variation and descriptive meaning.
func composedText(e *types.BookEntity, maxVariants int) []string {
	parts := []string{e.Name}
	for i, v := range e.Variants {
		if i >= maxVariants {
			break
		}
		parts = append(parts, v)
	}
	if ctx := e.BestContext(); ctx != "" {
		parts = append(parts, ctx)
	}
	return parts
}

// BuildEmbeddingIndex computes (or loads from cache) an embedding for
// every entity. Work fans out over a bounded worker pool behind a shared
// rate limiter; transient provider failures are retried with backoff.
// Embeddings are load-bearing, so an entity that still fails after
// retries fails the whole run.
func BuildEmbeddingIndex(ctx context.Context, entities []types.BookEntity, gen llm.EmbeddingGenerator, cache storage.EmbeddingCache, cfg Config) (*EmbeddingIndex, error) {
	idx := &EmbeddingIndex{
		vectors: make(map[string][]float32, len(entities)),
		model:   gen.GetModel(),
	}

	// Degenerate names are an input problem, caught before any spend.
	for i := range entities {
		name := strings.TrimSpace(entities[i].Name)
		if len([]rune(name)) < 2 {
			return nil, fmt.Errorf("%w: entity %q has a degenerate name %q",
				corpus.ErrInvalidInput, entities[i].ID, entities[i].Name)
		}
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Workers)
	jobs := make(chan *types.BookEntity)

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
		cached   int
		computed int
	)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for e := range jobs {
				vec, fromCache, err := embedOne(runCtx, e, gen, cache, limiter, cfg.MaxVariants)
				if err != nil {
					setErr(fmt.Errorf("embedding entity %q: %w", e.ID, err))
					return
				}
				mu.Lock()
				idx.vectors[e.ID] = vec
				if fromCache {
					cached++
				} else {
					computed++
				}
				mu.Unlock()
			}
		}(w)
	}

	for i := range entities {
		select {
		case <-runCtx.Done():
		case jobs <- &entities[i]:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("Embedding index built: %d entities (%d cached, %d computed)",
		len(idx.vectors), cached, computed)
	return idx, nil
}

// embedOne resolves one entity's vector, cache first.
func embedOne(ctx context.Context, e *types.BookEntity, gen llm.EmbeddingGenerator, cache storage.EmbeddingCache, limiter *rate.Limiter, maxVariants int) ([]float32, bool, error) {
	parts := composedText(e, maxVariants)
	key := storage.ContentKey(parts...)

	vec, err := cache.Get(ctx, key)
	if err == nil {
		return vec, true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	text := strings.Join(parts, "\n")
	var lastErr error
	for attempt := 0; attempt < embedRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			log.Printf("Retrying embedding for %s in %v (attempt %d)", e.ID, backoff, attempt+1)
			select {
			case <-ctx.Done():
				return nil, false, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, false, err
		}
		vec, lastErr = gen.Embed(ctx, text)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, false, fmt.Errorf("after %d attempts: %w", embedRetries, lastErr)
	}

	// Concurrent writes of the same key are idempotent; a write failure
	// only costs a recompute on the next run.
	if err := cache.Put(ctx, key, vec, gen.GetModel()); err != nil {
		log.Printf("WARNING: failed to cache embedding for %s: %v", e.ID, err)
	}
	return vec, false, nil
}

// Vector returns the embedding for an entity ID, or nil.
func (idx *EmbeddingIndex) Vector(entityID string) []float32 {
	return idx.vectors[entityID]
}

// Model returns the embedding model that produced the index.
func (idx *EmbeddingIndex) Model() string { return idx.model }

// Len returns the number of indexed entities.
func (idx *EmbeddingIndex) Len() int { return len(idx.vectors) }

// Similarity returns the cosine similarity of two entities' vectors, or
// 0 when either is missing.
func (idx *EmbeddingIndex) Similarity(idA, idB string) float64 {
	return Cosine(idx.vectors[idA], idx.vectors[idB])
}

// Cosine computes cosine similarity between two vectors. Mismatched or
// empty vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
