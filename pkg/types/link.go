package types

// LinkType names the relationship a decided Link asserts between two
// entity mentions. Merge types (SameReferent, OrthographicVariant,
// CrossLinguistic) feed cluster construction; the rest survive only as
// cross-references and never cause a merge.
type LinkType string

const (
	LinkSameReferent        LinkType = "same_referent"        // Identical real-world referent
	LinkOrthographicVariant LinkType = "orthographic_variant" // Same referent, spelling variation within one language
	LinkCrossLinguistic     LinkType = "cross_linguistic"     // Same referent across languages/scripts
	LinkDerivation          LinkType = "derivation"           // One term derived from the other
	LinkConceptualOverlap   LinkType = "conceptual_overlap"   // Related but non-identical referents
	LinkContestedIdentity   LinkType = "contested_identity"   // Historically conflated but distinct referents
)

// IsMerge reports whether links of this type are consumed by the cluster
// builder as union operations.
func (t LinkType) IsMerge() bool {
	switch t {
	case LinkSameReferent, LinkOrthographicVariant, LinkCrossLinguistic:
		return true
	}
	return false
}

// Link is a decided relationship between two entity mentions, with the
// evidence that justified the decision.
type Link struct {
	FromID     string   `json:"from_id"`               // Source entity ID
	ToID       string   `json:"to_id"`                 // Target entity ID
	Type       LinkType `json:"type"`                  // See LinkType
	Strength   float64  `json:"strength"`              // Confidence in [0,1]; raw similarity for automatic decisions
	Evidence   string   `json:"evidence,omitempty"`    // Snippet or adjudicator justification
	SourceBook string   `json:"source_book,omitempty"` // Book the evidence excerpt came from
}
