package engine

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/benjaminbreen/premodern-concordance/internal/corpus"
	"github.com/benjaminbreen/premodern-concordance/internal/llm"
	"github.com/benjaminbreen/premodern-concordance/internal/storage"
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// Pipeline runs the full concordance build from a loaded corpus to the
// exported artifacts. Stages run strictly in order; each stage consumes
// only completed output of the previous ones.
type Pipeline struct {
	cfg         Config
	embedder    llm.EmbeddingGenerator
	cache       storage.EmbeddingCache
	adjudicator Adjudicator
	enricher    *EnrichmentResolver // nil disables enrichment
}

// Result carries the artifacts of one pipeline run.
type Result struct {
	Concordance *types.Concordance
	Neighbors   *types.NeighborGraph
	Decisions   *DecisionSet
}

func NewPipeline(cfg Config, embedder llm.EmbeddingGenerator, cache storage.EmbeddingCache, adj Adjudicator, enricher *EnrichmentResolver) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		embedder:    embedder,
		cache:       cache,
		adjudicator: adj,
		enricher:    enricher,
	}
}

// Run executes every stage and returns the finished artifacts without
// writing them. Identical inputs produce identical output apart from the
// run ID and timestamp.
func (p *Pipeline) Run(ctx context.Context, c *corpus.Corpus) (*Result, error) {
	runID := uuid.New().String()
	start := time.Now()
	log.Printf("Run %s: %d books, %d entities", runID, len(c.Books), len(c.Entities))

	books := make(map[string]*types.Book, len(c.Books))
	for i := range c.Books {
		books[c.Books[i].ID] = &c.Books[i]
	}

	stage := time.Now()
	index, err := BuildEmbeddingIndex(ctx, c.Entities, p.embedder, p.cache, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding stage failed: %w", err)
	}
	log.Printf("Embedded %d entities in %v", index.Len(), time.Since(stage).Round(time.Millisecond))

	stage = time.Now()
	pairs := GenerateCandidates(c.Entities, index, p.cfg)
	log.Printf("Generated %d candidate pairs in %v", len(pairs), time.Since(stage).Round(time.Millisecond))

	stage = time.Now()
	decider := NewDecisionEngine(p.cfg, p.adjudicator, books)
	decisions, err := decider.Decide(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("decision stage failed: %w", err)
	}
	log.Printf("Decided %d pairs in %v: %d auto-matched, %d adjudicated, %d failures, %d conflicts",
		len(pairs), time.Since(stage).Round(time.Millisecond),
		decisions.AutoMatches, decisions.Adjudicated, decisions.AdjudicationFailures, decisions.Conflicts)

	clusters := BuildClusters(c.Entities, decisions.Merges, books)
	log.Printf("Built %d clusters from %d entities", len(clusters), len(c.Entities))

	if p.enricher != nil {
		stage = time.Now()
		if err := p.enricher.Resolve(ctx, clusters); err != nil {
			return nil, fmt.Errorf("enrichment stage failed: %w", err)
		}
		log.Printf("Enrichment finished in %v", time.Since(stage).Round(time.Millisecond))
	}

	AttachCrossReferences(clusters, decisions.NonMerge)

	neighbors := BuildNeighborGraph(clusters, index, p.cfg.NeighborK)

	concordance := &types.Concordance{
		Metadata: types.Metadata{
			RunID:             runID,
			CreatedAt:         time.Now().UTC(),
			MergeThreshold:    p.cfg.MergeThreshold,
			CandidateFloor:    p.cfg.CandidateFloor,
			Enriched:          p.enricher != nil,
			EmbeddingModel:    index.Model(),
			AdjudicationModel: p.adjudicator.Model(),
		},
		Books:    c.Books,
		Stats:    BuildStats(clusters),
		Clusters: clusters,
	}

	log.Printf("Run %s finished in %v: %d clusters, %d singletons",
		runID, time.Since(start).Round(time.Millisecond),
		concordance.Stats.ClusterCount, concordance.Stats.SingletonCount)

	return &Result{Concordance: concordance, Neighbors: neighbors, Decisions: decisions}, nil
}

// Export writes both artifacts into outputDir.
func (r *Result) Export(outputDir string) error {
	if err := WriteConcordance(filepath.Join(outputDir, "concordance.json"), r.Concordance); err != nil {
		return err
	}
	return WriteNeighborGraph(filepath.Join(outputDir, "neighbors.json"), r.Neighbors)
}
