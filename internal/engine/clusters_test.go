package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

func TestBuildClustersPartition(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("bontius:7", "bontius", "walghvogel", types.CategoryAnimal),
		testEntity("dampier:3", "dampier", "dodo", types.CategoryAnimal),
		testEntity("piso:1", "piso", "ipecacuanha", types.CategoryPlant),
	}
	merges := []types.Link{
		{FromID: "bontius:7", ToID: "dampier:3", Type: types.LinkCrossLinguistic, Strength: 0.85},
	}

	clusters := BuildClusters(entities, merges, testBooks())

	require.Len(t, clusters, 2)

	// Every entity appears in exactly one cluster.
	seen := make(map[string]int)
	for i := range clusters {
		for _, id := range clusters[i].MemberIDs() {
			seen[id]++
		}
	}
	require.Len(t, seen, len(entities))
	for id, n := range seen {
		assert.Equal(t, 1, n, "entity %s must belong to exactly one cluster", id)
	}

	// Singleton clusters are a normal outcome.
	assert.True(t, clusters[1].HasMember("piso:1"))
	assert.Len(t, clusters[1].Members, 1)
}

func TestBuildClustersCanonicalElection(t *testing.T) {
	byOccurrence := testEntity("bontius:1", "bontius", "walghvogel", types.CategoryAnimal)
	byOccurrence.Occurrences = 9
	other := testEntity("dampier:1", "dampier", "dodo", types.CategoryAnimal)
	other.Occurrences = 3

	clusters := BuildClusters(
		[]types.BookEntity{byOccurrence, other},
		[]types.Link{{FromID: "bontius:1", ToID: "dampier:1", Type: types.LinkCrossLinguistic}},
		testBooks(),
	)
	require.Len(t, clusters, 1)
	assert.Equal(t, "walghvogel", clusters[0].CanonicalName, "highest occurrence count wins")
	assert.Equal(t, 12, clusters[0].TotalMentions)
	assert.Equal(t, 2, clusters[0].BookCount)
}

func TestBuildClustersCanonicalTieBreaksOnBookYear(t *testing.T) {
	// Equal occurrences: the earlier-published book (bontius 1642 vs
	// dampier 1697) supplies the canonical name.
	a := testEntity("bontius:1", "bontius", "walghvogel", types.CategoryAnimal)
	b := testEntity("dampier:1", "dampier", "dodo", types.CategoryAnimal)

	clusters := BuildClusters(
		[]types.BookEntity{a, b},
		[]types.Link{{FromID: "dampier:1", ToID: "bontius:1", Type: types.LinkCrossLinguistic}},
		testBooks(),
	)
	require.Len(t, clusters, 1)
	assert.Equal(t, "walghvogel", clusters[0].CanonicalName)
}

func TestBuildClustersEdgesStayInsideCluster(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("bontius:1", "bontius", "theriaca", types.CategorySubstance),
		testEntity("dampier:1", "dampier", "theriac", types.CategorySubstance),
		testEntity("piso:1", "piso", "mithridatium", types.CategorySubstance),
	}
	merges := []types.Link{
		{FromID: "bontius:1", ToID: "dampier:1", Type: types.LinkOrthographicVariant, Strength: 0.93, Evidence: "treacle"},
	}

	clusters := BuildClusters(entities, merges, testBooks())

	var withEdges *types.Cluster
	for i := range clusters {
		if len(clusters[i].Edges) > 0 {
			withEdges = &clusters[i]
		}
	}
	require.NotNil(t, withEdges)
	for _, e := range withEdges.Edges {
		assert.True(t, withEdges.HasMember(e.FromID))
		assert.True(t, withEdges.HasMember(e.ToID))
	}
	assert.InDelta(t, 0.93, withEdges.Edges[0].Similarity, 1e-9)
}

func TestBuildClustersDeterministicAcrossRuns(t *testing.T) {
	entities := []types.BookEntity{
		testEntity("bontius:1", "bontius", "arrack", types.CategorySubstance),
		testEntity("bontius:2", "bontius", "betel", types.CategoryPlant),
		testEntity("dampier:1", "dampier", "arack", types.CategorySubstance),
		testEntity("piso:1", "piso", "pinang", types.CategoryPlant),
	}
	merges := []types.Link{
		{FromID: "bontius:1", ToID: "dampier:1", Type: types.LinkOrthographicVariant},
		{FromID: "bontius:2", ToID: "piso:1", Type: types.LinkCrossLinguistic},
	}

	first := BuildClusters(entities, merges, testBooks())
	for run := 0; run < 5; run++ {
		again := BuildClusters(entities, merges, testBooks())
		require.Equal(t, len(first), len(again))
		for i := range first {
			assert.Equal(t, first[i].ID, again[i].ID)
			assert.Equal(t, first[i].StableKey, again[i].StableKey)
			assert.Equal(t, first[i].CanonicalName, again[i].CanonicalName)
			assert.Equal(t, first[i].MemberDigest, again[i].MemberDigest)
			assert.Equal(t, first[i].MemberIDs(), again[i].MemberIDs())
		}
	}
}

func TestAssignStableKeysCollisions(t *testing.T) {
	// Two distinct referents sharing a canonical name: the lower cluster
	// ID keeps the bare slug, the other gets a suffixed one.
	entities := []types.BookEntity{
		testEntity("bontius:1", "bontius", "Mercurius", types.CategoryPerson),
		testEntity("piso:1", "piso", "Mercurius", types.CategorySubstance),
	}

	clusters := BuildClusters(entities, nil, testBooks())
	require.Len(t, clusters, 2)
	assert.Equal(t, "mercurius", clusters[0].StableKey)
	assert.Equal(t, "mercurius-2", clusters[1].StableKey)
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Nux Vomica", "nux-vomica"},
		{"  Garcia de Orta  ", "garcia-de-orta"},
		{"quinta essentia!", "quinta-essentia"},
		{"São Tomé", "são-tomé"},
		{"A--B", "a-b"},
		{"!!!", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Slugify(c.in), "Slugify(%q)", c.in)
	}
}

func TestMemberDigestOrderInsensitive(t *testing.T) {
	a := memberDigest([]string{"x:1", "y:2", "z:3"})
	b := memberDigest([]string{"z:3", "x:1", "y:2"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, memberDigest([]string{"x:1", "y:2"}))
}
