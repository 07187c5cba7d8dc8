package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// testEntity builds a minimal entity for pipeline tests.
func testEntity(id, bookID, name string, cat types.Category) types.BookEntity {
	return types.BookEntity{
		ID:          id,
		BookID:      bookID,
		Name:        name,
		Category:    cat,
		Occurrences: 1,
	}
}

// testIndex builds a read-only embedding index from canned vectors.
func testIndex(vectors map[string][]float32) *EmbeddingIndex {
	return &EmbeddingIndex{vectors: vectors, model: "test-embed"}
}

func TestGenerateCandidatesBlocksByCategory(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("a:1", "a", "dodo", types.CategoryAnimal),
		testEntity("b:1", "b", "walghvogel", types.CategoryAnimal),
		testEntity("b:2", "b", "cinnamon", types.CategoryPlant),
	}
	// All vectors identical, so every permitted pair scores 1.0.
	idx := testIndex(map[string][]float32{
		"a:1": {1, 0}, "b:1": {1, 0}, "b:2": {1, 0},
	})

	pairs := GenerateCandidates(entities, idx, DefaultConfig())

	require.Len(t, pairs, 1)
	assert.Equal(t, "a:1", pairs[0].A.ID)
	assert.Equal(t, "b:1", pairs[0].B.ID)
	assert.InDelta(t, 1.0, pairs[0].Similarity, 1e-9)
}

func TestGenerateCandidatesSkipsSameBook(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("a:1", "a", "theriaca", types.CategorySubstance),
		testEntity("a:2", "a", "theriac", types.CategorySubstance),
	}
	idx := testIndex(map[string][]float32{"a:1": {1, 0}, "a:2": {1, 0}})

	pairs := GenerateCandidates(entities, idx, DefaultConfig())
	assert.Empty(t, pairs, "entities from the same book never pair")
}

func TestGenerateCandidatesAppliesFloor(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("a:1", "a", "saffron", types.CategoryPlant),
		testEntity("b:1", "b", "mandrake", types.CategoryPlant),
	}
	// Orthogonal vectors score 0, well under the floor.
	idx := testIndex(map[string][]float32{"a:1": {1, 0}, "b:1": {0, 1}})

	pairs := GenerateCandidates(entities, idx, DefaultConfig())
	assert.Empty(t, pairs)
}

func TestGenerateCandidatesKeepsCrossLingualScores(t *testing.T) {
	// Cross-lingual renderings of the same referent sit in the high 0.3s;
	// the shipped floor must let them through to the decision engine.
	entities := []types.BookEntity{
		testEntity("a:1", "a", "dodo", types.CategoryAnimal),
		testEntity("b:1", "b", "walghvogel", types.CategoryAnimal),
	}
	idx := testIndex(map[string][]float32{
		"a:1": {1, 0}, "b:1": {0.37, 0.92903173},
	})

	pairs := GenerateCandidates(entities, idx, DefaultConfig())
	require.Len(t, pairs, 1)
	assert.InDelta(t, 0.37, pairs[0].Similarity, 1e-6)
}

func TestGenerateCandidatesExcludesNoiseNames(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("a:1", "a", "de", types.CategoryConcept),
		testEntity("b:1", "b", "De", types.CategoryConcept),
		testEntity("a:2", "a", "x", types.CategoryConcept),
		testEntity("b:2", "b", "quinta essentia", types.CategoryConcept),
	}
	idx := testIndex(map[string][]float32{
		"a:1": {1, 0}, "b:1": {1, 0}, "a:2": {1, 0}, "b:2": {1, 0},
	})

	pairs := GenerateCandidates(entities, idx, DefaultConfig())
	assert.Empty(t, pairs, "stopword and single-character names are excluded")
}

func TestGenerateCandidatesCrossCategoryAllowList(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("a:1", "a", "opium poppy", types.CategoryPlant),
		testEntity("b:1", "b", "opium", types.CategorySubstance),
		testEntity("a:2", "a", "Garcia de Orta", types.CategoryPerson),
		testEntity("b:2", "b", "fever", types.CategoryDisease),
	}
	idx := testIndex(map[string][]float32{
		"a:1": {1, 0}, "b:1": {1, 0}, "a:2": {1, 0}, "b:2": {1, 0},
	})

	cfg := DefaultConfig()
	pairs := GenerateCandidates(entities, idx, cfg)
	require.Len(t, pairs, 1, "only the PLANT:SUBSTANCE pair crosses categories")
	assert.Equal(t, "a:1", pairs[0].A.ID)
	assert.Equal(t, "b:1", pairs[0].B.ID)

	cfg.SetCrossCategoryPairs(nil)
	assert.Empty(t, GenerateCandidates(entities, idx, cfg))
}

func TestGenerateCandidatesDeterministicOrder(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("a:1", "a", "rhubarb", types.CategoryPlant),
		testEntity("b:1", "b", "rha barbarum", types.CategoryPlant),
		testEntity("b:2", "b", "rhabarber", types.CategoryPlant),
		testEntity("c:1", "c", "rheum", types.CategoryPlant),
	}
	idx := testIndex(map[string][]float32{
		"a:1": {1, 0, 0},
		"b:1": {0.9, 0.1, 0},
		"b:2": {0.8, 0.2, 0},
		"c:1": {0.7, 0.3, 0},
	})
	cfg := DefaultConfig()

	first := GenerateCandidates(entities, idx, cfg)
	require.NotEmpty(t, first)
	for run := 0; run < 5; run++ {
		again := GenerateCandidates(entities, idx, cfg)
		require.Equal(t, len(first), len(again))
		for i := range first {
			assert.Equal(t, first[i].A.ID, again[i].A.ID)
			assert.Equal(t, first[i].B.ID, again[i].B.ID)
		}
	}

	// Descending similarity, IDs as tie-break.
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Similarity, first[i].Similarity)
	}
}
