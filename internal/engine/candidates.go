package engine

import (
	"log"
	"sort"
	"strings"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// stopwordNames are names too generic to ever be a useful candidate. The
// corpus is multilingual, so the set covers the common article/particle
// noise across its languages.
var stopwordNames = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "or": true,
	"de": true, "la": true, "le": true, "les": true, "el": true, "los": true,
	"las": true, "een": true, "het": true, "der": true, "die": true,
	"das": true, "den": true, "van": true, "von": true, "et": true,
	"in": true, "un": true, "una": true, "il": true, "lo": true,
}

// excludedFromCandidates reports whether an entity is too noisy to pair:
// single-character or stopword-like names generate false positives
// faster than the adjudicator can reject them.
func excludedFromCandidates(e *types.BookEntity) bool {
	name := strings.ToLower(strings.TrimSpace(e.Name))
	return len([]rune(name)) <= 1 || stopwordNames[name]
}

// GenerateCandidates emits plausible cross-book pairs without
// materializing the full cross product: entities are partitioned by
// category (blocking), compared only across distinct books, and kept
// only at or above the similarity floor. Cross-category comparisons
// happen only for explicitly allow-listed category pairs.
//
// Output is deterministic: pairs are ordered by descending similarity,
// then by entity IDs, so downstream decisions replay identically.
func GenerateCandidates(entities []types.BookEntity, idx *EmbeddingIndex, cfg Config) []CandidatePair {
	byCategory := make(map[types.Category][]*types.BookEntity)
	excluded := 0
	for i := range entities {
		e := &entities[i]
		if excludedFromCandidates(e) {
			excluded++
			continue
		}
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}

	var pairs []CandidatePair

	appendPair := func(a, b *types.BookEntity) {
		if a.BookID == b.BookID {
			return
		}
		if b.ID < a.ID {
			a, b = b, a
		}
		sim := idx.Similarity(a.ID, b.ID)
		if sim >= cfg.CandidateFloor {
			pairs = append(pairs, CandidatePair{A: a, B: b, Similarity: sim})
		}
	}

	// Within-category blocks.
	for _, block := range byCategory {
		for i := 0; i < len(block); i++ {
			for j := i + 1; j < len(block); j++ {
				appendPair(block[i], block[j])
			}
		}
	}

	// Allow-listed cross-category blocks.
	for ci := range byCategory {
		for cj := range byCategory {
			if ci >= cj || !cfg.AllowsCrossCategory(ci, cj) {
				continue
			}
			for _, a := range byCategory[ci] {
				for _, b := range byCategory[cj] {
					appendPair(a, b)
				}
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		if pairs[i].A.ID != pairs[j].A.ID {
			return pairs[i].A.ID < pairs[j].A.ID
		}
		return pairs[i].B.ID < pairs[j].B.ID
	})

	log.Printf("Candidate generation: %d pairs from %d entities (%d excluded as noise)",
		len(pairs), len(entities), excluded)
	return pairs
}
