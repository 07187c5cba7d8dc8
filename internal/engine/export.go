package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

// BuildStats summarizes a cluster set.
func BuildStats(clusters []types.Cluster) types.Stats {
	stats := types.Stats{
		ClusterCount:      len(clusters),
		CategoryHistogram: make(map[types.Category]int),
	}
	enriched := 0
	for i := range clusters {
		c := &clusters[i]
		stats.EntityCount += len(c.Members)
		if len(c.Members) == 1 {
			stats.SingletonCount++
		}
		stats.CategoryHistogram[c.Category]++
		if c.GroundTruth != nil {
			enriched++
		}
	}
	if len(clusters) > 0 {
		stats.EnrichmentCoverage = float64(enriched) / float64(len(clusters))
	}
	return stats
}

// WriteConcordance writes the concordance artifact atomically.
func WriteConcordance(path string, c *types.Concordance) error {
	return writeJSON(path, c)
}

// WriteNeighborGraph writes the neighbor graph artifact atomically.
func WriteNeighborGraph(path string, g *types.NeighborGraph) error {
	return writeJSON(path, g)
}

// writeJSON marshals v and replaces path in one rename, so a crash
// mid-write never leaves a truncated artifact behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadConcordance loads a previously exported concordance.
func ReadConcordance(path string) (*types.Concordance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read concordance: %w", err)
	}
	var c types.Concordance
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse concordance: %w", err)
	}
	return &c, nil
}
