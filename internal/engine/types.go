// Package engine implements the concordance pipeline: embedding,
// candidate generation, pair decisions, clustering, enrichment,
// cross-referencing, neighbor graphs and export.
package engine

import (
	"strings"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// Config holds the engine thresholds and worker sizing. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// CandidateFloor is the similarity below which a pair is never even
	// considered. Deliberately low: true cross-lingual same-referent
	// pairs (dodo/walghvogel scores around 0.37) fall far below
	// same-language orthographic variants and must still reach the
	// adjudicator.
	CandidateFloor float64

	// MergeThreshold is the similarity at or above which a same-category
	// pair matches automatically, without adjudication.
	MergeThreshold float64

	Workers           int     // Worker pool size for embedding and adjudication
	RateLimit         float64 // External calls per second, shared across workers
	AdjudicationBatch int     // Uncertain pairs per worker dispatch
	NeighborK         int     // Neighbors per cluster in the neighbor graph
	MaxVariants       int     // Variants folded into the embedding text

	// crossCategory holds normalized "A|B" keys (A < B) for allowed
	// cross-category candidate pairs.
	crossCategory map[string]bool
}

// DefaultConfig returns the thresholds the pipeline ships with.
func DefaultConfig() Config {
	cfg := Config{
		CandidateFloor:    0.35,
		MergeThreshold:    0.70,
		Workers:           4,
		RateLimit:         8,
		AdjudicationBatch: 8,
		NeighborK:         10,
		MaxVariants:       5,
	}
	cfg.SetCrossCategoryPairs([]string{"PLANT:SUBSTANCE", "ANIMAL:CONCEPT"})
	return cfg
}

// SetCrossCategoryPairs installs the cross-category allow-list from
// "CAT1:CAT2" strings (order-insensitive).
func (c *Config) SetCrossCategoryPairs(pairs []string) {
	c.crossCategory = make(map[string]bool, len(pairs))
	for _, p := range pairs {
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			continue
		}
		c.crossCategory[crossCategoryKey(
			types.Category(strings.ToUpper(strings.TrimSpace(parts[0]))),
			types.Category(strings.ToUpper(strings.TrimSpace(parts[1]))),
		)] = true
	}
}

// AllowsCrossCategory reports whether candidates may pair across the two
// categories.
func (c *Config) AllowsCrossCategory(a, b types.Category) bool {
	return c.crossCategory[crossCategoryKey(a, b)]
}

func crossCategoryKey(a, b types.Category) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

// CandidatePair is one plausible cross-book pair emitted by the candidate
// generator. Ephemeral: pairs are consumed by the decision engine and
// never persisted.
type CandidatePair struct {
	A          *types.BookEntity
	B          *types.BookEntity
	Similarity float64
}
