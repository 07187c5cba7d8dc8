// Package authority provides lookup clients for the external reference
// sources used to attach modern identifications to clusters: a general
// knowledge base (Wikidata), an encyclopedia (Wikipedia) and a taxonomic
// registry (GBIF) for plants and animals.
//
// Sources return ranked candidates; tier policy (high/medium/low) is the
// enrichment resolver's job, not the clients'.
package authority

import (
	"context"
	"errors"
	"strings"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// ErrAmbiguous indicates multiple equally-good matches. Not fatal: the
// resolver records it as a lowered confidence tier.
var ErrAmbiguous = errors.New("ambiguous authority match")

// Query is one lookup request against a source.
type Query struct {
	Name      string         // Canonical cluster name
	Category  types.Category // Used for corroboration, not filtering
	TaxonHint string         // Scientific-name fragment found in member contexts, if any
}

// Candidate is one possible identification returned by a source.
type Candidate struct {
	Source        string  // "wikidata", "wikipedia", "gbif"
	ID            string  // Identifier within the source
	Name          string  // Matched modern name
	Description   string  // Short gloss from the source
	URL           string  // Resolvable URL when available
	TaxonomicName string  // Scientific binomial, taxonomy sources only
	CategoryMatch bool    // Source metadata corroborates the query category
	Score         float64 // Source-reported match quality in [0,1]
	Fuzzy         bool    // Match was fuzzy rather than exact
}

// Source is one external reference service.
type Source interface {
	// Name identifies the source in logs and external references.
	Name() string

	// Lookup returns candidates for the query, best first. An empty slice
	// means the source knows nothing; that is not an error.
	Lookup(ctx context.Context, q Query) ([]Candidate, error)
}

// categoryKeywords maps categories to description keywords used for
// corroboration against knowledge-base glosses.
var categoryKeywords = map[types.Category][]string{
	types.CategoryPerson:    {"physician", "naturalist", "writer", "explorer", "scholar", "person", "king", "queen", "botanist"},
	types.CategoryPlant:     {"plant", "tree", "herb", "shrub", "species of", "genus of", "flowering"},
	types.CategoryAnimal:    {"animal", "bird", "fish", "mammal", "reptile", "insect", "species of", "extinct"},
	types.CategorySubstance: {"substance", "compound", "mineral", "drug", "medicine", "chemical", "element", "preparation"},
	types.CategoryDisease:   {"disease", "illness", "condition", "infection", "disorder", "fever"},
	types.CategoryPlace:     {"city", "country", "region", "island", "river", "town", "port", "colony"},
	types.CategoryConcept:   {"concept", "theory", "doctrine", "practice", "belief"},
	types.CategoryObject:    {"instrument", "tool", "object", "device", "vessel"},
	types.CategoryEvent:     {"battle", "war", "event", "epidemic", "expedition"},
	types.CategoryWork:      {"book", "treatise", "work", "text", "manuscript"},
}

// descriptionMatchesCategory reports whether a source gloss corroborates
// the queried category.
func descriptionMatchesCategory(description string, cat types.Category) bool {
	keywords, ok := categoryKeywords[cat]
	if !ok {
		return false
	}
	d := strings.ToLower(description)
	for _, kw := range keywords {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}
