package engine

import (
	"sort"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// BuildNeighborGraph computes, for every cluster, its k nearest clusters
// by embedding similarity. Each cluster is represented by the member
// vector closest to the cluster centroid, so one outlier member cannot
// skew the cluster's position. Clusters with no embedded members are
// omitted from the graph.
func BuildNeighborGraph(clusters []types.Cluster, index *EmbeddingIndex, k int) *types.NeighborGraph {
	if k < 1 {
		k = 1
	}
	if k > len(clusters)-1 {
		k = len(clusters) - 1
	}

	type point struct {
		id  int
		vec []float32
	}
	points := make([]point, 0, len(clusters))
	for i := range clusters {
		if vec := representativeVector(&clusters[i], index); vec != nil {
			points = append(points, point{id: clusters[i].ID, vec: vec})
		}
	}

	graph := &types.NeighborGraph{
		K:         k,
		Count:     len(points),
		Neighbors: make(map[int][]types.Neighbor, len(points)),
	}
	if k < 1 {
		return graph
	}

	for i := range points {
		neighbors := make([]types.Neighbor, 0, len(points)-1)
		for j := range points {
			if i == j {
				continue
			}
			neighbors = append(neighbors, types.Neighbor{
				ID:  points[j].id,
				Sim: Cosine(points[i].vec, points[j].vec),
			})
		}
		sort.SliceStable(neighbors, func(a, b int) bool {
			if neighbors[a].Sim != neighbors[b].Sim {
				return neighbors[a].Sim > neighbors[b].Sim
			}
			return neighbors[a].ID < neighbors[b].ID
		})
		if len(neighbors) > k {
			neighbors = neighbors[:k]
		}
		graph.Neighbors[points[i].id] = neighbors
	}

	return graph
}

// representativeVector picks the member vector nearest the cluster
// centroid, or nil when no member has an embedding.
func representativeVector(c *types.Cluster, index *EmbeddingIndex) []float32 {
	var vecs [][]float32
	for _, m := range c.Members {
		if vec := index.Vector(m.EntityID); vec != nil {
			vecs = append(vecs, vec)
		}
	}
	if len(vecs) == 0 {
		return nil
	}
	if len(vecs) == 1 {
		return vecs[0]
	}

	centroid := make([]float32, len(vecs[0]))
	for _, vec := range vecs {
		for d := range vec {
			centroid[d] += vec[d]
		}
	}
	for d := range centroid {
		centroid[d] /= float32(len(vecs))
	}

	best := 0
	bestSim := Cosine(vecs[0], centroid)
	for i := 1; i < len(vecs); i++ {
		if sim := Cosine(vecs[i], centroid); sim > bestSim {
			best = i
			bestSim = sim
		}
	}
	return vecs[best]
}
