package authority

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

func gbifTestServer(t *testing.T, handler http.HandlerFunc) *GBIFSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGBIFSource(GBIFConfig{BaseURL: server.URL})
}

func TestGBIFLookupExactMatch(t *testing.T) {
	src := gbifTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/species/match", r.URL.Path)
		assert.Equal(t, "Raphus cucullatus", r.URL.Query().Get("name"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"usageKey": 2498305,
			"scientificName": "Raphus cucullatus (Linnaeus, 1758)",
			"canonicalName": "Raphus cucullatus",
			"matchType": "EXACT",
			"confidence": 98,
			"kingdom": "Animalia",
			"status": "ACCEPTED"
		}`))
	})

	candidates, err := src.Lookup(context.Background(), Query{
		Name:      "dodo",
		Category:  types.CategoryAnimal,
		TaxonHint: "Raphus cucullatus", // the hint is preferred over the display name
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "gbif", c.Source)
	assert.Equal(t, "2498305", c.ID)
	assert.Equal(t, "Raphus cucullatus", c.Name)
	assert.Equal(t, "Raphus cucullatus (Linnaeus, 1758)", c.TaxonomicName)
	assert.True(t, c.CategoryMatch, "Animalia corroborates ANIMAL")
	assert.False(t, c.Fuzzy)
	assert.InDelta(t, 0.98, c.Score, 1e-9)
}

func TestGBIFLookupFuzzyMatch(t *testing.T) {
	src := gbifTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"usageKey": 5414270,
			"canonicalName": "Strychnos colubrina",
			"scientificName": "Strychnos colubrina L.",
			"matchType": "FUZZY",
			"confidence": 72,
			"kingdom": "Plantae"
		}`))
	})

	candidates, err := src.Lookup(context.Background(), Query{Name: "strychnos colubrina", Category: types.CategoryPlant})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].Fuzzy)
	assert.True(t, candidates[0].CategoryMatch)
}

func TestGBIFLookupNoMatch(t *testing.T) {
	src := gbifTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matchType": "NONE", "confidence": 100}`))
	})

	candidates, err := src.Lookup(context.Background(), Query{Name: "walghvogel", Category: types.CategoryAnimal})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestGBIFLookupKingdomMismatch(t *testing.T) {
	src := gbifTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"usageKey": 1,
			"canonicalName": "Fungus fictus",
			"matchType": "EXACT",
			"confidence": 95,
			"kingdom": "Fungi"
		}`))
	})

	candidates, err := src.Lookup(context.Background(), Query{Name: "agaric", Category: types.CategoryPlant})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].CategoryMatch)
}
