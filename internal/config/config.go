// Package config provides configuration management for the concordance
// pipeline. It loads settings from environment variables with the
// CONCORDANCE_ prefix and provides sensible defaults for all options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for a pipeline run.
type Config struct {
	Corpus    CorpusConfig
	Cache     CacheConfig
	LLM       LLMConfig
	Engine    EngineConfig
	Authority AuthorityConfig
}

// CorpusConfig locates the input corpus and the output directory.
type CorpusConfig struct {
	ManifestPath string // Path to the corpus manifest YAML (default: ./corpus.yaml)
	OutputDir    string // Directory for exported artifacts (default: ./output)
}

// CacheConfig selects the embedding cache backend.
type CacheConfig struct {
	Backend     string // Cache backend: sqlite, postgres, memory (default: sqlite)
	SQLitePath  string // Path to the sqlite cache file (default: ./data/embeddings.db)
	PostgresDSN string // Postgres connection string when Backend is postgres
}

// LLMConfig contains embedding and adjudication provider configuration.
type LLMConfig struct {
	Provider             string        // Provider: ollama, openai (default: ollama)
	OllamaURL            string        // Ollama API URL (default: http://localhost:11434)
	OllamaModel          string        // Ollama model for adjudication (default: qwen2.5:7b)
	OllamaEmbeddingModel string        // Ollama model for embeddings (default: nomic-embed-text)
	OpenAIAPIKey         string        // OpenAI API key
	OpenAIModel          string        // OpenAI model for adjudication (default: gpt-4o-mini)
	OpenAIEmbeddingModel string        // OpenAI model for embeddings (default: text-embedding-3-small)
	RequestTimeout       time.Duration // Per-call timeout (default: 30s)
}

// EngineConfig holds clustering thresholds and worker sizing.
type EngineConfig struct {
	CandidateFloor    float64 // Minimum similarity for a candidate pair (default: 0.35)
	MergeThreshold    float64 // Similarity at or above which pairs match automatically (default: 0.70)
	Workers           int     // Worker pool size for external-bound stages (default: 4)
	RateLimit         float64 // External calls per second across all workers (default: 8)
	AdjudicationBatch int     // Uncertain pairs dispatched per worker batch (default: 8)
	NeighborK         int     // Nearest neighbors per cluster, valid 8-15 (default: 10)
	MaxVariants       int     // Variants concatenated into the embedding text (default: 5)
	// CrossCategoryPairs allows candidate pairs across two different
	// categories, as "CAT1:CAT2" entries (order-insensitive).
	CrossCategoryPairs []string
}

// AuthorityConfig controls ground-truth enrichment.
type AuthorityConfig struct {
	Enabled        bool          // Run authority enrichment (default: true)
	WikidataURL    string        // Wikidata API base URL
	WikipediaURL   string        // Wikipedia REST API base URL
	GBIFURL        string        // GBIF species API base URL
	RequestTimeout time.Duration // Per-lookup timeout (default: 15s)
}

// Load builds a Config from environment variables and defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Corpus: CorpusConfig{
			ManifestPath: getEnv("CONCORDANCE_MANIFEST", "./corpus.yaml"),
			OutputDir:    getEnv("CONCORDANCE_OUTPUT_DIR", "./output"),
		},
		Cache: CacheConfig{
			Backend:     getEnv("CONCORDANCE_CACHE_BACKEND", "sqlite"),
			SQLitePath:  getEnv("CONCORDANCE_CACHE_PATH", "./data/embeddings.db"),
			PostgresDSN: getEnv("CONCORDANCE_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:             getEnv("CONCORDANCE_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("CONCORDANCE_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("CONCORDANCE_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbeddingModel: getEnv("CONCORDANCE_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("CONCORDANCE_OPENAI_API_KEY", ""),
			OpenAIModel:          getEnv("CONCORDANCE_OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIEmbeddingModel: getEnv("CONCORDANCE_OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			RequestTimeout:       getEnvDuration("CONCORDANCE_LLM_TIMEOUT", 30*time.Second),
		},
		Engine: EngineConfig{
			CandidateFloor:    getEnvFloat("CONCORDANCE_CANDIDATE_FLOOR", 0.35),
			MergeThreshold:    getEnvFloat("CONCORDANCE_MERGE_THRESHOLD", 0.70),
			Workers:           getEnvInt("CONCORDANCE_WORKERS", 4),
			RateLimit:         getEnvFloat("CONCORDANCE_RATE_LIMIT", 8),
			AdjudicationBatch: getEnvInt("CONCORDANCE_ADJUDICATION_BATCH", 8),
			NeighborK:         getEnvInt("CONCORDANCE_NEIGHBOR_K", 10),
			MaxVariants:       getEnvInt("CONCORDANCE_MAX_VARIANTS", 5),
			CrossCategoryPairs: getEnvList("CONCORDANCE_CROSS_CATEGORY",
				[]string{"PLANT:SUBSTANCE", "ANIMAL:CONCEPT"}),
		},
		Authority: AuthorityConfig{
			Enabled:        getEnvBool("CONCORDANCE_ENRICHMENT", true),
			WikidataURL:    getEnv("CONCORDANCE_WIKIDATA_URL", "https://www.wikidata.org/w/api.php"),
			WikipediaURL:   getEnv("CONCORDANCE_WIKIPEDIA_URL", "https://en.wikipedia.org/api/rest_v1"),
			GBIFURL:        getEnv("CONCORDANCE_GBIF_URL", "https://api.gbif.org/v1"),
			RequestTimeout: getEnvDuration("CONCORDANCE_AUTHORITY_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that thresholds and sizes are internally consistent.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "postgres" && c.Cache.PostgresDSN == "" {
		return fmt.Errorf("config: postgres cache backend requires CONCORDANCE_POSTGRES_DSN")
	}
	if c.Engine.CandidateFloor < 0 || c.Engine.CandidateFloor >= 1 {
		return fmt.Errorf("config: candidate floor %.2f out of range [0,1)", c.Engine.CandidateFloor)
	}
	if c.Engine.MergeThreshold <= c.Engine.CandidateFloor || c.Engine.MergeThreshold > 1 {
		return fmt.Errorf("config: merge threshold %.2f must be in (%.2f,1]",
			c.Engine.MergeThreshold, c.Engine.CandidateFloor)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("config: worker count must be at least 1, got %d", c.Engine.Workers)
	}
	if c.Engine.NeighborK < 8 || c.Engine.NeighborK > 15 {
		return fmt.Errorf("config: neighbor k %d out of range [8,15]", c.Engine.NeighborK)
	}
	for _, pair := range c.Engine.CrossCategoryPairs {
		if strings.Count(pair, ":") != 1 {
			return fmt.Errorf("config: malformed cross-category pair %q", pair)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
