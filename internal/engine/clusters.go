package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// BuildClusters produces the final partition: union-find over all
// entities, with accepted merge links as union operations; every
// connected component becomes one cluster. An entity matching nothing
// becomes a singleton cluster, which is not an error.
//
// Entities must arrive sorted by ID (the corpus loader guarantees this);
// cluster IDs, member order, canonical names and stable keys are then
// fully deterministic for identical input.
func BuildClusters(entities []types.BookEntity, merges []types.Link, books map[string]*types.Book) []types.Cluster {
	index := make(map[string]int32, len(entities))
	for i := range entities {
		index[entities[i].ID] = int32(i)
	}

	uf := newUnionFind(len(entities))
	for _, link := range merges {
		a, aok := index[link.FromID]
		b, bok := index[link.ToID]
		if aok && bok {
			uf.union(a, b)
		}
	}

	// Group by root, preserving sorted entity order within components.
	components := make(map[int32][]int32)
	var rootOrder []int32
	for i := range entities {
		root := uf.find(int32(i))
		if _, seen := components[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		components[root] = append(components[root], int32(i))
	}
	// Components ordered by their smallest member ID, which is the first
	// member since entities are sorted.
	sort.Slice(rootOrder, func(i, j int) bool {
		return components[rootOrder[i]][0] < components[rootOrder[j]][0]
	})

	clusters := make([]types.Cluster, 0, len(rootOrder))
	for clusterIdx, root := range rootOrder {
		memberIdx := components[root]
		canonical := electCanonical(entities, memberIdx, books)

		c := types.Cluster{
			ID:            clusterIdx + 1,
			CanonicalName: entities[canonical].Name,
			Category:      entities[canonical].Category,
			Subcategory:   entities[canonical].Subcategory,
		}

		bookSet := make(map[string]bool)
		for _, mi := range memberIdx {
			e := &entities[mi]
			c.Members = append(c.Members, types.ClusterMember{
				EntityID:    e.ID,
				BookID:      e.BookID,
				Name:        e.Name,
				Occurrences: e.Occurrences,
				Variants:    e.Variants,
				Contexts:    e.Contexts,
			})
			c.TotalMentions += e.Occurrences
			bookSet[e.BookID] = true
		}
		c.BookCount = len(bookSet)
		c.MemberDigest = memberDigest(c.MemberIDs())

		clusters = append(clusters, c)
	}

	attachEdges(clusters, merges, index, uf, entities)
	assignStableKeys(clusters)

	singletons := 0
	for i := range clusters {
		if len(clusters[i].Members) == 1 {
			singletons++
		}
	}
	log.Printf("Clustering: %d clusters from %d entities (%d singletons)",
		len(clusters), len(entities), singletons)
	return clusters
}

// electCanonical picks the member whose name becomes the cluster's
// canonical name: highest occurrence count, ties broken toward the
// earliest-published source book, then lexicographic entity ID.
func electCanonical(entities []types.BookEntity, memberIdx []int32, books map[string]*types.Book) int32 {
	year := func(bookID string) int {
		if b, ok := books[bookID]; ok && b.Year > 0 {
			return b.Year
		}
		return int(^uint(0) >> 1) // unknown year sorts last
	}

	best := memberIdx[0]
	for _, mi := range memberIdx[1:] {
		e, b := &entities[mi], &entities[best]
		switch {
		case e.Occurrences != b.Occurrences:
			if e.Occurrences > b.Occurrences {
				best = mi
			}
		case year(e.BookID) != year(b.BookID):
			if year(e.BookID) < year(b.BookID) {
				best = mi
			}
		case e.ID < b.ID:
			best = mi
		}
	}
	return best
}

// attachEdges stores each merge link on the cluster containing both of
// its endpoints. Every stored edge references two actual members.
func attachEdges(clusters []types.Cluster, merges []types.Link, index map[string]int32, uf *unionFind, entities []types.BookEntity) {
	rootToCluster := make(map[int32]int, len(clusters))
	for ci := range clusters {
		first := index[clusters[ci].Members[0].EntityID]
		rootToCluster[uf.find(first)] = ci
	}

	for _, link := range merges {
		a, aok := index[link.FromID]
		b, bok := index[link.ToID]
		if !aok || !bok || uf.find(a) != uf.find(b) {
			continue
		}
		ci := rootToCluster[uf.find(a)]
		clusters[ci].Edges = append(clusters[ci].Edges, types.SimilarityEdge{
			FromID:     link.FromID,
			ToID:       link.ToID,
			Type:       link.Type,
			Similarity: link.Strength,
			Evidence:   link.Evidence,
		})
	}
}

// assignStableKeys slugs every canonical name and resolves collisions
// deterministically: within a run, the lowest cluster ID keeps the bare
// slug and the others append their numeric ID.
func assignStableKeys(clusters []types.Cluster) {
	bySlug := make(map[string][]int)
	for i := range clusters {
		slug := Slugify(clusters[i].CanonicalName)
		if slug == "" {
			slug = fmt.Sprintf("cluster-%d", clusters[i].ID)
		}
		bySlug[slug] = append(bySlug[slug], i)
	}

	for slug, idxs := range bySlug {
		sort.Slice(idxs, func(a, b int) bool {
			return clusters[idxs[a]].ID < clusters[idxs[b]].ID
		})
		clusters[idxs[0]].StableKey = slug
		for _, i := range idxs[1:] {
			clusters[i].StableKey = fmt.Sprintf("%s-%d", slug, clusters[i].ID)
		}
	}
}

// Slugify normalizes a canonical name into a stable_key slug: lowercase,
// letters and digits kept, everything else collapsed to single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// memberDigest hashes the sorted member IDs so consumers can detect a
// membership change hiding behind an unchanged slug.
func memberDigest(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(h[:8])
}
