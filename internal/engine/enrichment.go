package engine

import (
	"context"
	"errors"
	"log"
	"regexp"
	"time"

	"github.com/benjaminbreen/premodern-concordance/internal/authority"
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

const (
	authorityRetries = 3
	// minAuthorityScore is the disambiguation bar: no candidate below it
	// ever becomes a GroundTruth.
	minAuthorityScore = 0.5
	// ambiguityMargin is how close two candidate scores must be to count
	// as equally good, triggering the ambiguity downgrade.
	ambiguityMargin = 0.05
)

// binomialPattern spots a Linnaean binomial in member context strings,
// used as a hint for the taxonomic registry.
var binomialPattern = regexp.MustCompile(`\b[A-Z][a-z]{2,} [a-z]{3,}\b`)

// EnrichmentResolver attaches authoritative modern identification to
// clusters by querying external reference sources. Lookup failures skip
// the cluster rather than failing the run; a cluster with no GroundTruth
// is a normal outcome.
type EnrichmentResolver struct {
	knowledgeBase authority.Source // general knowledge base, tried first
	encyclopedia  authority.Source // fallback: one article per title
	taxonomy      authority.Source // PLANT/ANIMAL scientific names
}

// NewEnrichmentResolver creates a resolver. Any source may be nil, which
// simply skips that lookup.
func NewEnrichmentResolver(knowledgeBase, encyclopedia, taxonomy authority.Source) *EnrichmentResolver {
	return &EnrichmentResolver{
		knowledgeBase: knowledgeBase,
		encyclopedia:  encyclopedia,
		taxonomy:      taxonomy,
	}
}

// Resolve attempts a GroundTruth for every cluster, in place.
func (r *EnrichmentResolver) Resolve(ctx context.Context, clusters []types.Cluster) error {
	enriched := 0
	for i := range clusters {
		if err := ctx.Err(); err != nil {
			return err
		}
		gt := r.resolveCluster(ctx, &clusters[i])
		if gt != nil {
			clusters[i].GroundTruth = gt
			enriched++
		}
	}
	log.Printf("Enrichment: %d/%d clusters identified", enriched, len(clusters))
	return nil
}

// resolveCluster runs the source cascade for one cluster. Returns nil
// when no candidate clears the disambiguation bar.
func (r *EnrichmentResolver) resolveCluster(ctx context.Context, c *types.Cluster) *types.GroundTruth {
	q := authority.Query{
		Name:      c.CanonicalName,
		Category:  c.Category,
		TaxonHint: taxonHint(c),
	}

	gt := r.lookupGeneral(ctx, r.knowledgeBase, q)
	if gt == nil {
		gt = r.lookupGeneral(ctx, r.encyclopedia, q)
	}

	// PLANT/ANIMAL clusters also consult the taxonomic registry; a
	// scientific name enriches an existing identification or, failing
	// everything else, stands on its own at a cautious tier.
	if c.Category == types.CategoryPlant || c.Category == types.CategoryAnimal {
		if taxon := r.lookupTaxon(ctx, q); taxon != nil {
			if gt == nil {
				tier := types.ConfidenceMedium
				if taxon.Fuzzy || !taxon.CategoryMatch {
					tier = types.ConfidenceLow
				}
				gt = &types.GroundTruth{
					ModernName: taxon.Name,
					Confidence: tier,
				}
			}
			gt.TaxonomicName = taxon.TaxonomicName
			gt.ExternalIDs = append(gt.ExternalIDs, types.ExternalRef{
				Source: taxon.Source, ID: taxon.ID, URL: taxon.URL,
			})
		}
	}

	return gt
}

// lookupGeneral queries one general source and applies the confidence
// policy: high for a single corroborated match, medium for a single
// uncorroborated one, low for fuzzy or ambiguity-downgraded matches.
func (r *EnrichmentResolver) lookupGeneral(ctx context.Context, src authority.Source, q authority.Query) *types.GroundTruth {
	if src == nil {
		return nil
	}

	candidates, err := r.lookupWithRetry(ctx, src, q)
	ambiguous := errors.Is(err, authority.ErrAmbiguous)
	if err != nil && !ambiguous {
		log.Printf("Authority lookup failed for %q via %s: %v", q.Name, src.Name(), err)
		return nil
	}
	if ambiguous {
		// A rejected disambiguation still identifies the name itself,
		// just not which referent; record it at the lowest tier.
		return &types.GroundTruth{
			ModernName: q.Name,
			Confidence: types.ConfidenceLow,
			Note:       "multiple possible identifications; none could be singled out",
		}
	}
	if len(candidates) == 0 || candidates[0].Score < minAuthorityScore {
		return nil
	}

	best := candidates[0]
	tier := types.ConfidenceMedium
	if best.CategoryMatch {
		tier = types.ConfidenceHigh
	}
	if best.Fuzzy {
		tier = types.ConfidenceLow
	}

	gt := &types.GroundTruth{
		ModernName: best.Name,
		Confidence: tier,
		ExternalIDs: []types.ExternalRef{
			{Source: best.Source, ID: best.ID, URL: best.URL},
		},
	}

	// Multiple equally-good matches downgrade the tier: the pick is
	// defensible but not certain.
	if len(candidates) > 1 && candidates[1].Score >= best.Score-ambiguityMargin {
		gt.Confidence = gt.Confidence.Downgrade()
		gt.Note = "equally plausible alternative: " + candidates[1].Name
	}

	switch q.Category {
	case types.CategoryPerson:
		gt.Biography = best.Description
	case types.CategoryPlace:
		gt.Geography = best.Description
	}

	return gt
}

// lookupTaxon queries the taxonomic registry, returning the best match
// or nil.
func (r *EnrichmentResolver) lookupTaxon(ctx context.Context, q authority.Query) *authority.Candidate {
	if r.taxonomy == nil {
		return nil
	}
	candidates, err := r.lookupWithRetry(ctx, r.taxonomy, q)
	if err != nil || len(candidates) == 0 {
		if err != nil {
			log.Printf("Taxonomy lookup failed for %q: %v", q.Name, err)
		}
		return nil
	}
	if candidates[0].Score < minAuthorityScore {
		return nil
	}
	return &candidates[0]
}

// lookupWithRetry retries transient source failures with quadratic
// backoff. ErrAmbiguous is a verdict, not a failure, and returns
// immediately.
func (r *EnrichmentResolver) lookupWithRetry(ctx context.Context, src authority.Source, q authority.Query) ([]authority.Candidate, error) {
	var lastErr error
	for attempt := 0; attempt < authorityRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		candidates, err := src.Lookup(ctx, q)
		if err == nil || errors.Is(err, authority.ErrAmbiguous) {
			return candidates, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// taxonHint scans member contexts for a Linnaean binomial.
func taxonHint(c *types.Cluster) string {
	for _, m := range c.Members {
		for _, text := range m.Contexts {
			if hint := binomialPattern.FindString(text); hint != "" {
				return hint
			}
		}
	}
	return ""
}
