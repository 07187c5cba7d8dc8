// Package llm provides the embedding and text-completion clients used by
// the pipeline's external-bound stages, wrapped with circuit-breaker
// protection. The decision engine and embedding index depend only on the
// two small interfaces here, never on a concrete provider.
package llm

import "context"

// TextGenerator is the interface for model text completion. Adjudication
// prompts use single-string completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
