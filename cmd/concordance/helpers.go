package main

import (
	"fmt"

	"github.com/benjaminbreen/premodern-concordance/internal/authority"
	"github.com/benjaminbreen/premodern-concordance/internal/config"
	"github.com/benjaminbreen/premodern-concordance/internal/engine"
	"github.com/benjaminbreen/premodern-concordance/internal/storage"
	"github.com/benjaminbreen/premodern-concordance/internal/storage/postgres"
	"github.com/benjaminbreen/premodern-concordance/internal/storage/sqlite"
)

// newEmbeddingCache selects the cache backend from configuration.
func newEmbeddingCache(cfg config.CacheConfig) (storage.EmbeddingCache, error) {
	switch cfg.Backend {
	case "sqlite":
		return sqlite.NewEmbeddingCache(cfg.SQLitePath)
	case "postgres":
		return postgres.NewEmbeddingCache(cfg.PostgresDSN)
	case "memory":
		return storage.NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// engineConfig maps the loaded configuration onto engine thresholds.
func engineConfig(cfg *config.Config) engine.Config {
	ec := engine.DefaultConfig()
	ec.CandidateFloor = cfg.Engine.CandidateFloor
	ec.MergeThreshold = cfg.Engine.MergeThreshold
	ec.Workers = cfg.Engine.Workers
	ec.RateLimit = cfg.Engine.RateLimit
	ec.AdjudicationBatch = cfg.Engine.AdjudicationBatch
	ec.NeighborK = cfg.Engine.NeighborK
	ec.MaxVariants = cfg.Engine.MaxVariants
	ec.SetCrossCategoryPairs(cfg.Engine.CrossCategoryPairs)
	return ec
}

// newEnricher wires the authority sources, or returns nil when
// enrichment is disabled.
func newEnricher(cfg config.AuthorityConfig) *engine.EnrichmentResolver {
	if !cfg.Enabled {
		return nil
	}
	return engine.NewEnrichmentResolver(
		authority.NewWikidataSource(authority.WikidataConfig{
			BaseURL: cfg.WikidataURL,
			Timeout: cfg.RequestTimeout,
		}),
		authority.NewWikipediaSource(authority.WikipediaConfig{
			BaseURL: cfg.WikipediaURL,
			Timeout: cfg.RequestTimeout,
		}),
		authority.NewGBIFSource(authority.GBIFConfig{
			BaseURL: cfg.GBIFURL,
			Timeout: cfg.RequestTimeout,
		}),
	)
}
