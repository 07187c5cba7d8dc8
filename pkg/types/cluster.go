package types

// ConfidenceTier grades how firmly a GroundTruth identification is held.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"   // Single unambiguous match with corroborating category metadata
	ConfidenceMedium ConfidenceTier = "medium" // Single match without full corroboration
	ConfidenceLow    ConfidenceTier = "low"    // Best-effort fuzzy match or disambiguation fallback
)

// Downgrade returns the next tier down. Low stays low.
func (c ConfidenceTier) Downgrade() ConfidenceTier {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceLow
	}
	return ConfidenceLow
}

// GroundTruth is the authoritative modern identification attached to a
// cluster when an external lookup succeeds.
type GroundTruth struct {
	ModernName    string         `json:"modern_name"`              // Accepted modern name
	Confidence    ConfidenceTier `json:"confidence"`               // See ConfidenceTier
	TaxonomicName string         `json:"taxonomic_name,omitempty"` // Scientific binomial for PLANT/ANIMAL
	Biography     string         `json:"biography,omitempty"`      // Dates / biographical note for PERSON
	Geography     string         `json:"geography,omitempty"`      // Modern location note for PLACE
	ExternalIDs   []ExternalRef  `json:"external_ids,omitempty"`   // Authority identifiers
	Note          string         `json:"note,omitempty"`           // Uncertainty note when a lookup was ambiguous
}

// ExternalRef is one authority identifier attached to a GroundTruth.
type ExternalRef struct {
	Source string `json:"source"`        // "wikidata", "wikipedia", "gbif"
	ID     string `json:"id"`            // Identifier within the source
	URL    string `json:"url,omitempty"` // Resolvable URL when the source has one
}

// ClusterMember is a denormalized BookEntity reference carried inside a
// cluster, so consumers never need the original entity files.
type ClusterMember struct {
	EntityID    string   `json:"entity_id"`
	BookID      string   `json:"book_id"`
	Name        string   `json:"name"`
	Occurrences int      `json:"occurrences"`
	Variants    []string `json:"variants,omitempty"`
	Contexts    []string `json:"contexts,omitempty"`
}

// SimilarityEdge records one accepted pairwise decision that justified a
// merge inside a cluster. Both endpoints are always cluster members.
type SimilarityEdge struct {
	FromID     string   `json:"from_id"`
	ToID       string   `json:"to_id"`
	Type       LinkType `json:"type"`
	Similarity float64  `json:"similarity"`
	Evidence   string   `json:"evidence,omitempty"`
}

// CrossReference is a non-merging relationship from one cluster to
// another. Reverse echoes carry IsReverse and are excluded from synonym
// framing by consumers.
type CrossReference struct {
	TargetID  int      `json:"target_id"`           // Target cluster ID within the same export
	TargetKey string   `json:"target_key"`          // Target cluster stable_key
	Type      LinkType `json:"type"`                // Never a merge type
	Strength  float64  `json:"strength"`
	Evidence  string   `json:"evidence,omitempty"`
	IsReverse bool     `json:"is_reverse,omitempty"`
}

// Cluster is one group of same-referent mentions, the primary unit of the
// concordance. Every BookEntity in the corpus belongs to exactly one.
type Cluster struct {
	ID            int              `json:"id"`                    // Stable within one exported file only
	StableKey     string           `json:"stable_key"`            // Deterministic slug, collision-resolved
	CanonicalName string           `json:"canonical_name"`        // Name of the highest-occurrence member
	Category      Category         `json:"category"`
	Subcategory   string           `json:"subcategory,omitempty"`
	Members       []ClusterMember  `json:"members"`
	BookCount     int              `json:"book_count"`            // Distinct books among members
	TotalMentions int              `json:"total_mentions"`        // Sum of member occurrence counts
	Edges         []SimilarityEdge `json:"edges,omitempty"`       // Accepted decisions justifying the merge
	// MemberDigest is a sha256 over sorted member entity IDs. A consumer
	// holding a stable_key can detect a merge/split behind the same slug
	// by comparing digests across runs.
	MemberDigest    string           `json:"member_digest"`
	GroundTruth     *GroundTruth     `json:"ground_truth,omitempty"`
	CrossReferences []CrossReference `json:"cross_references,omitempty"`
}

// MemberIDs returns the entity IDs of all members, in member order.
func (c *Cluster) MemberIDs() []string {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.EntityID
	}
	return ids
}

// HasMember reports whether the given entity ID is a member.
func (c *Cluster) HasMember(entityID string) bool {
	for _, m := range c.Members {
		if m.EntityID == entityID {
			return true
		}
	}
	return false
}
