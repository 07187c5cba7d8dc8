package engine

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// aliasRefStrength is the fixed strength of references found by alias
// resolution. String equality carries no similarity score, so alias hits
// rank below any adjudicated relationship.
const aliasRefStrength = 0.5

type refKey struct {
	from, to int
	typ      types.LinkType
}

// AttachCrossReferences attaches cluster-level cross-references from two
// sources: decided non-merging links, and member alias strings that
// resolve exactly to another cluster's recorded names. Each reference
// produces a forward entry on the source cluster and a reverse echo on
// the target, so readers of either cluster see the relationship.
// Clusters are modified in place.
func AttachCrossReferences(clusters []types.Cluster, nonMerge []types.Link) {
	memberCluster := make(map[string]int, len(clusters)) // entity ID -> cluster index
	for i := range clusters {
		for _, m := range clusters[i].Members {
			memberCluster[m.EntityID] = i
		}
	}

	// One reference per type between a cluster pair; adjudicated links
	// are applied first, so an alias hit never shadows a decided one.
	seen := make(map[refKey]bool)
	addRef := func(fromIdx, toIdx int, typ types.LinkType, strength float64, evidence string) {
		key := refKey{fromIdx, toIdx, typ}
		if seen[key] {
			return
		}
		seen[key] = true
		seen[refKey{toIdx, fromIdx, typ}] = true

		from := &clusters[fromIdx]
		to := &clusters[toIdx]
		from.CrossReferences = append(from.CrossReferences, types.CrossReference{
			TargetID:  to.ID,
			TargetKey: to.StableKey,
			Type:      typ,
			Strength:  strength,
			Evidence:  evidence,
		})
		to.CrossReferences = append(to.CrossReferences, types.CrossReference{
			TargetID:  from.ID,
			TargetKey: from.StableKey,
			Type:      typ,
			Strength:  strength,
			Evidence:  evidence,
			IsReverse: true,
		})
	}

	for _, link := range nonMerge {
		fromIdx, ok := memberCluster[link.FromID]
		if !ok {
			continue
		}
		toIdx, ok := memberCluster[link.ToID]
		if !ok || fromIdx == toIdx {
			// Both endpoints merged into the same cluster after all;
			// an internal link is no longer a cross-reference.
			continue
		}
		addRef(fromIdx, toIdx, link.Type, link.Strength, link.Evidence)
	}

	attachAliasReferences(clusters, addRef)

	for i := range clusters {
		sortCrossReferences(clusters[i].CrossReferences)
	}
}

// attachAliasReferences resolves member alias strings against every
// cluster's canonical name, member names and variants. An alias claimed
// by exactly one other cluster becomes a conceptual_overlap reference;
// one claimed by several other clusters is ambiguous and resolves to
// none.
func attachAliasReferences(clusters []types.Cluster, addRef func(int, int, types.LinkType, float64, string)) {
	owners := make(map[string][]int)
	claim := func(name string, idx int) {
		n := normalizeAlias(name)
		if n == "" {
			return
		}
		for _, o := range owners[n] {
			if o == idx {
				return
			}
		}
		owners[n] = append(owners[n], idx)
	}
	for i := range clusters {
		claim(clusters[i].CanonicalName, i)
		for _, m := range clusters[i].Members {
			claim(m.Name, i)
			for _, v := range m.Variants {
				claim(v, i)
			}
		}
	}

	for i := range clusters {
		for _, m := range clusters[i].Members {
			for _, v := range m.Variants {
				target := -1
				for _, o := range owners[normalizeAlias(v)] {
					if o == i {
						continue
					}
					if target >= 0 {
						target = -1
						break
					}
					target = o
				}
				if target < 0 {
					continue
				}
				evidence := fmt.Sprintf("%q in %s is also a recorded name of %s",
					v, m.BookID, clusters[target].CanonicalName)
				addRef(i, target, types.LinkConceptualOverlap, aliasRefStrength, evidence)
			}
		}
	}
}

// normalizeAlias canonicalizes a name for exact alias matching. Names
// too short or generic to identify anything resolve to nothing, the same
// exclusion the candidate generator applies.
func normalizeAlias(s string) string {
	n := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if utf8.RuneCountInString(n) < 3 || stopwordNames[n] {
		return ""
	}
	return n
}

// sortCrossReferences orders references deterministically: forward before
// reverse, then by target ID, then by type.
func sortCrossReferences(refs []types.CrossReference) {
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.IsReverse != b.IsReverse {
			return !a.IsReverse
		}
		if a.TargetID != b.TargetID {
			return a.TargetID < b.TargetID
		}
		return a.Type < b.Type
	})
}
