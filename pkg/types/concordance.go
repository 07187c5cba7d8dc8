package types

import "time"

// Metadata describes how a concordance artifact was produced.
type Metadata struct {
	RunID             string    `json:"run_id"`                       // UUID of the pipeline run
	CreatedAt         time.Time `json:"created_at"`
	MergeThreshold    float64   `json:"merge_threshold"`              // High band threshold used for automatic matches
	CandidateFloor    float64   `json:"candidate_floor"`              // Similarity floor for candidate generation
	Enriched          bool      `json:"enriched"`                     // Whether authority enrichment ran
	EmbeddingModel    string    `json:"embedding_model,omitempty"`    // Model that produced the embeddings
	AdjudicationModel string    `json:"adjudication_model,omitempty"` // Model that adjudicated uncertain pairs
}

// Stats summarizes a concordance for quick inspection.
type Stats struct {
	ClusterCount      int              `json:"cluster_count"`
	EntityCount       int              `json:"entity_count"`
	SingletonCount    int              `json:"singleton_count"`
	CategoryHistogram map[Category]int `json:"category_histogram"`
	// EnrichmentCoverage is the fraction of clusters carrying a GroundTruth.
	EnrichmentCoverage float64 `json:"enrichment_coverage"`
}

// Concordance is the complete exported artifact, read-only for consumers.
type Concordance struct {
	Metadata Metadata  `json:"metadata"`
	Books    []Book    `json:"books"`
	Stats    Stats     `json:"stats"`
	Clusters []Cluster `json:"clusters"`
}

// Neighbor is one entry in a cluster's nearest-neighbor list.
type Neighbor struct {
	ID  int     `json:"id"`  // Neighbor cluster ID
	Sim float64 `json:"sim"` // Cosine similarity of cluster representatives
}

// NeighborGraph is the companion artifact for exploratory browsing.
// Adjacency is not required to be symmetric.
type NeighborGraph struct {
	K         int                `json:"k"`         // Neighbors requested per cluster
	Count     int                `json:"count"`     // Number of clusters with entries
	Neighbors map[int][]Neighbor `json:"neighbors"` // Cluster ID -> ranked neighbor list
}
