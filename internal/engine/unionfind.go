package engine

// unionFind is an index-based disjoint-set arena. Entities are addressed
// by dense integer index so path compression and union-by-rank stay
// allocation-free.
type unionFind struct {
	parent []int32
	rank   []int8
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int32, n),
		rank:   make([]int8, n),
	}
	for i := range uf.parent {
		uf.parent[i] = int32(i)
	}
	return uf
}

// find returns the root of i with path compression.
func (uf *unionFind) find(i int32) int32 {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]] // halving
		i = uf.parent[i]
	}
	return i
}

// union merges the sets containing a and b, by rank. Returns false if
// they were already in the same set.
func (uf *unionFind) union(a, b int32) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	return true
}

// connected reports whether a and b share a root.
func (uf *unionFind) connected(a, b int32) bool {
	return uf.find(a) == uf.find(b)
}
