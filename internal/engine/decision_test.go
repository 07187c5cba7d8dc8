package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminbreen/premodern-concordance/internal/llm"
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// testBooks is a two-language corpus manifest for decision tests.
func testBooks() map[string]*types.Book {
	return map[string]*types.Book{
		"piso":    {ID: "piso", Title: "Historia Naturalis Brasiliae", Year: 1648, Language: "la"},
		"bontius": {ID: "bontius", Title: "De Medicina Indorum", Year: 1642, Language: "la"},
		"dampier": {ID: "dampier", Title: "A New Voyage Round the World", Year: 1697, Language: "en"},
	}
}

// testDecisionConfig is DefaultConfig tuned for tests: single worker so
// stub call counts are exact, and no meaningful rate limiting.
func testDecisionConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.RateLimit = 10000
	return cfg
}

func pair(a, b types.BookEntity, sim float64) CandidatePair {
	ca, cb := a, b
	return CandidatePair{A: &ca, B: &cb, Similarity: sim}
}

func TestDecideHighBandMergesWithoutAdjudication(t *testing.T) {
	a := testEntity("piso:1", "piso", "theriaca", types.CategorySubstance)
	b := testEntity("bontius:1", "bontius", "theriac", types.CategorySubstance)
	stub := &StubAdjudicator{}
	engine := NewDecisionEngine(testDecisionConfig(), stub, testBooks())

	set, err := engine.Decide(context.Background(), []CandidatePair{pair(a, b, 0.93)})
	require.NoError(t, err)

	assert.Zero(t, stub.Calls, "high-band pairs never reach the adjudicator")
	assert.Equal(t, 1, set.AutoMatches)
	require.Len(t, set.Merges, 1)
	assert.Equal(t, types.LinkOrthographicVariant, set.Merges[0].Type,
		"same script and same source language is a spelling variation")
	assert.InDelta(t, 0.93, set.Merges[0].Strength, 1e-9)
}

func TestDecideHighBandCrossLinguisticSubtype(t *testing.T) {
	a := testEntity("bontius:7", "bontius", "walghvogel", types.CategoryAnimal)
	b := testEntity("dampier:3", "dampier", "dodo", types.CategoryAnimal)
	engine := NewDecisionEngine(testDecisionConfig(), &StubAdjudicator{}, testBooks())

	set, err := engine.Decide(context.Background(), []CandidatePair{pair(a, b, 0.74)})
	require.NoError(t, err)

	require.Len(t, set.Merges, 1)
	assert.Equal(t, types.LinkCrossLinguistic, set.Merges[0].Type,
		"different source languages subtype as cross-linguistic")
}

func TestDecideMidBandAdjudicated(t *testing.T) {
	a := testEntity("bontius:7", "bontius", "walghvogel", types.CategoryAnimal)
	b := testEntity("dampier:3", "dampier", "dodo", types.CategoryAnimal)
	stub := &StubAdjudicator{
		Decisions: map[string]llm.AdjudicationResponse{
			PairKey("bontius:7", "dampier:3"): {
				Decision:      llm.DecisionMatch,
				LinkType:      "cross_linguistic",
				Confidence:    0.85,
				Justification: "Dutch name for the same Mauritian bird",
			},
		},
	}
	engine := NewDecisionEngine(testDecisionConfig(), stub, testBooks())

	set, err := engine.Decide(context.Background(), []CandidatePair{pair(a, b, 0.55)})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.Calls)
	assert.Equal(t, 1, set.Adjudicated)
	assert.Zero(t, set.AutoMatches)
	require.Len(t, set.Merges, 1)
	assert.Equal(t, types.LinkCrossLinguistic, set.Merges[0].Type)
	assert.Equal(t, "Dutch name for the same Mauritian bird", set.Merges[0].Evidence)
}

func TestDecideDefaultFloorEscalatesCrossLingualPair(t *testing.T) {
	// Cross-lingual same-referent pairs score well below same-language
	// variants; at the shipped thresholds a 0.37 pair must reach the
	// adjudicator instead of being auto-rejected.
	a := testEntity("bontius:7", "bontius", "walghvogel", types.CategoryAnimal)
	b := testEntity("dampier:3", "dampier", "dodo", types.CategoryAnimal)
	stub := &StubAdjudicator{
		Decisions: map[string]llm.AdjudicationResponse{
			PairKey("bontius:7", "dampier:3"): {
				Decision:      llm.DecisionMatch,
				LinkType:      "cross_linguistic",
				Confidence:    0.8,
				Justification: "Dutch name for the same Mauritian bird",
			},
		},
	}
	engine := NewDecisionEngine(testDecisionConfig(), stub, testBooks())

	set, err := engine.Decide(context.Background(), []CandidatePair{pair(a, b, 0.37)})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.Calls, "a 0.37 pair must be escalated at default thresholds")
	assert.Equal(t, 1, set.Adjudicated)
	assert.Zero(t, set.AutoMatches)
	require.Len(t, set.Merges, 1)
	assert.Equal(t, types.LinkCrossLinguistic, set.Merges[0].Type)
}

func TestDecideNoMatchBecomesCrossReference(t *testing.T) {
	a := testEntity("piso:2", "piso", "penguin", types.CategoryAnimal)
	b := testEntity("dampier:9", "dampier", "great auk", types.CategoryAnimal)
	stub := &StubAdjudicator{
		Decisions: map[string]llm.AdjudicationResponse{
			PairKey("dampier:9", "piso:2"): {
				Decision:      llm.DecisionNoMatch,
				LinkType:      "contested_identity",
				Confidence:    0.8,
				Justification: "early voyagers applied the same name to both birds",
			},
		},
	}
	engine := NewDecisionEngine(testDecisionConfig(), stub, testBooks())

	set, err := engine.Decide(context.Background(), []CandidatePair{pair(a, b, 0.6)})
	require.NoError(t, err)

	assert.Empty(t, set.Merges)
	require.Len(t, set.NonMerge, 1)
	assert.Equal(t, types.LinkContestedIdentity, set.NonMerge[0].Type)
	require.Len(t, set.Rejected, 1)
}

func TestDecideMatchVerdictWithNonMergeTypeIsCoerced(t *testing.T) {
	a := testEntity("piso:1", "piso", "ipecacuanha", types.CategoryPlant)
	b := testEntity("bontius:2", "bontius", "ipecacuana", types.CategoryPlant)
	stub := &StubAdjudicator{
		Decisions: map[string]llm.AdjudicationResponse{
			PairKey("bontius:2", "piso:1"): {
				Decision:   llm.DecisionMatch,
				LinkType:   "conceptual_overlap", // inconsistent with a match verdict
				Confidence: 0.7,
			},
		},
	}
	engine := NewDecisionEngine(testDecisionConfig(), stub, testBooks())

	set, err := engine.Decide(context.Background(), []CandidatePair{pair(a, b, 0.5)})
	require.NoError(t, err)

	require.Len(t, set.Merges, 1)
	assert.Equal(t, types.LinkSameReferent, set.Merges[0].Type)
}

func TestDecideNoMatchVerdictWithMergeTypeIsCoerced(t *testing.T) {
	a := testEntity("piso:1", "piso", "cassia", types.CategoryPlant)
	b := testEntity("bontius:2", "bontius", "cinnamon", types.CategoryPlant)
	stub := &StubAdjudicator{
		Decisions: map[string]llm.AdjudicationResponse{
			PairKey("bontius:2", "piso:1"): {
				Decision:   llm.DecisionNoMatch,
				LinkType:   "same_referent", // inconsistent with a no-match verdict
				Confidence: 0.6,
			},
		},
	}
	engine := NewDecisionEngine(testDecisionConfig(), stub, testBooks())

	set, err := engine.Decide(context.Background(), []CandidatePair{pair(a, b, 0.5)})
	require.NoError(t, err)

	assert.Empty(t, set.Merges)
	require.Len(t, set.NonMerge, 1)
	assert.Equal(t, types.LinkConceptualOverlap, set.NonMerge[0].Type)
}

func TestDecideUnreachableAdjudicatorRejectsConservatively(t *testing.T) {
	a := testEntity("bontius:7", "bontius", "walghvogel", types.CategoryAnimal)
	b := testEntity("dampier:3", "dampier", "dodo", types.CategoryAnimal)
	stub := &StubAdjudicator{Err: errors.New("connection refused")}
	engine := NewDecisionEngine(testDecisionConfig(), stub, testBooks())

	set, err := engine.Decide(context.Background(), []CandidatePair{pair(a, b, 0.55)})
	require.NoError(t, err, "adjudicator failure degrades, it does not fail the run")

	assert.Empty(t, set.Merges, "an unreachable adjudicator never merges")
	assert.Empty(t, set.NonMerge)
	assert.Len(t, set.Rejected, 1)
	assert.Equal(t, 1, set.AdjudicationFailures)
}

func TestDecideConflictDemotedToContested(t *testing.T) {
	// A merges with B; C was explicitly rejected against A; a later
	// accepted B~C match would transitively pull C in, so it is demoted.
	a := testEntity("piso:1", "piso", "antimony", types.CategorySubstance)
	b := testEntity("bontius:1", "bontius", "stibium", types.CategorySubstance)
	c := testEntity("dampier:1", "dampier", "kohl", types.CategorySubstance)
	stub := &StubAdjudicator{
		Decisions: map[string]llm.AdjudicationResponse{
			PairKey("dampier:1", "piso:1"): {
				Decision:      llm.DecisionNoMatch,
				LinkType:      "conceptual_overlap",
				Confidence:    0.75,
				Justification: "kohl here is galena, not antimony",
			},
		},
	}
	engine := NewDecisionEngine(testDecisionConfig(), stub, testBooks())

	pairs := []CandidatePair{
		pair(a, b, 0.88), // auto-accepted
		pair(b, c, 0.72), // auto-accepted, but contradicts the A~C rejection
		pair(c, a, 0.55), // adjudicated NO_MATCH
	}
	set, err := engine.Decide(context.Background(), pairs)
	require.NoError(t, err)

	require.Len(t, set.Merges, 1, "only the uncontested merge survives")
	assert.Equal(t, "piso:1", set.Merges[0].FromID)
	assert.Equal(t, "bontius:1", set.Merges[0].ToID)

	assert.Equal(t, 1, set.Conflicts)
	var contested []types.Link
	for _, l := range set.NonMerge {
		if l.Type == types.LinkContestedIdentity {
			contested = append(contested, l)
		}
	}
	require.Len(t, contested, 1)
	assert.Equal(t, "bontius:1", contested[0].FromID)
	assert.Equal(t, "dampier:1", contested[0].ToID)
}

func TestDecideThresholdMonotonicity(t *testing.T) {
	// Raising the merge threshold can only shrink the merge set, never
	// grow it, when all escalated pairs are rejected.
	entities := []types.BookEntity{
		testEntity("piso:1", "piso", "camphor", types.CategorySubstance),
		testEntity("bontius:1", "bontius", "camphora", types.CategorySubstance),
		testEntity("dampier:1", "dampier", "kapur", types.CategorySubstance),
		testEntity("dampier:2", "dampier", "camphire", types.CategorySubstance),
	}
	pairs := []CandidatePair{
		pair(entities[0], entities[1], 0.95),
		pair(entities[0], entities[3], 0.82),
		pair(entities[1], entities[2], 0.74),
	}
	stub := &StubAdjudicator{} // everything escalated comes back uncertain

	mergedAt := func(threshold float64) map[string]bool {
		cfg := testDecisionConfig()
		cfg.MergeThreshold = threshold
		set, err := NewDecisionEngine(cfg, stub, testBooks()).Decide(context.Background(), pairs)
		require.NoError(t, err)
		out := make(map[string]bool)
		for _, l := range set.Merges {
			out[PairKey(l.FromID, l.ToID)] = true
		}
		return out
	}

	loose := mergedAt(0.70)
	strict := mergedAt(0.90)
	assert.Greater(t, len(loose), len(strict))
	for key := range strict {
		assert.True(t, loose[key], "strict merges are a subset of loose merges")
	}
}
