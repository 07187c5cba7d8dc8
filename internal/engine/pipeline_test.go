package engine

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminbreen/premodern-concordance/internal/corpus"
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// keyedEmbedder returns a canned vector per entity name (the first line
// of the composed embedding text).
type keyedEmbedder struct {
	vectors map[string][]float32
}

func (k *keyedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	name := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		name = text[:i]
	}
	if vec, ok := k.vectors[name]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (k *keyedEmbedder) GetModel() string { return "keyed-embed" }

func TestPipelineEndToEnd(t *testing.T) {
	books := []types.Book{
		{ID: "bontius", Title: "De Medicina Indorum", Year: 1642, Language: "la"},
		{ID: "dampier", Title: "A New Voyage Round the World", Year: 1697, Language: "en"},
		{ID: "piso", Title: "Historia Naturalis Brasiliae", Year: 1648, Language: "la"},
	}
	entities := []types.BookEntity{
		testEntity("bontius:1", "bontius", "walghvogel", types.CategoryAnimal),
		testEntity("dampier:1", "dampier", "dodo", types.CategoryAnimal),
		testEntity("piso:1", "piso", "ipecacuanha", types.CategoryPlant),
	}
	c := &corpus.Corpus{Books: books, Entities: entities}

	embedder := &keyedEmbedder{vectors: map[string][]float32{
		"walghvogel":  {1, 0, 0},
		"dodo":        {0.97, 0.03, 0},
		"ipecacuanha": {0, 1, 0},
	}}

	cfg := testDecisionConfig()
	pipeline := NewPipeline(cfg, embedder, storageMemory(), &StubAdjudicator{}, nil)

	result, err := pipeline.Run(context.Background(), c)
	require.NoError(t, err)

	conc := result.Concordance
	assert.NotEmpty(t, conc.Metadata.RunID)
	assert.Equal(t, "keyed-embed", conc.Metadata.EmbeddingModel)
	assert.False(t, conc.Metadata.Enriched)
	assert.Len(t, conc.Books, 3)

	require.Len(t, conc.Clusters, 2)
	dodoCluster := conc.Clusters[0]
	assert.ElementsMatch(t, []string{"bontius:1", "dampier:1"}, dodoCluster.MemberIDs())
	assert.Equal(t, "walghvogel", dodoCluster.CanonicalName,
		"tie on occurrences resolves toward the earlier book")
	require.Len(t, dodoCluster.Edges, 1)
	assert.Equal(t, types.LinkCrossLinguistic, dodoCluster.Edges[0].Type)

	assert.Equal(t, 2, conc.Stats.ClusterCount)
	assert.Equal(t, 3, conc.Stats.EntityCount)
	assert.Equal(t, 1, conc.Stats.SingletonCount)

	require.NotNil(t, result.Neighbors)
	assert.Equal(t, 2, result.Neighbors.Count)

	// Identical input replays to the same partition (IDs and keys),
	// run metadata aside.
	again, err := pipeline.Run(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, again.Concordance.Clusters, 2)
	for i := range conc.Clusters {
		assert.Equal(t, conc.Clusters[i].StableKey, again.Concordance.Clusters[i].StableKey)
		assert.Equal(t, conc.Clusters[i].MemberDigest, again.Concordance.Clusters[i].MemberDigest)
	}
	assert.NotEqual(t, conc.Metadata.RunID, again.Concordance.Metadata.RunID)
}

func TestPipelineExportWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	result := &Result{
		Concordance: &types.Concordance{Metadata: types.Metadata{RunID: "r"}},
		Neighbors:   &types.NeighborGraph{K: 10, Neighbors: map[int][]types.Neighbor{}},
	}

	require.NoError(t, result.Export(dir))

	loaded, err := ReadConcordance(filepath.Join(dir, "concordance.json"))
	require.NoError(t, err)
	assert.Equal(t, "r", loaded.Metadata.RunID)
	assert.FileExists(t, filepath.Join(dir, "neighbors.json"))
}
