package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/benjaminbreen/premodern-concordance/internal/config"
	"github.com/benjaminbreen/premodern-concordance/internal/engine"
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

func newStatsCommand() *cobra.Command {
	var outputDir string
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a previously exported concordance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				outputDir = cfg.Corpus.OutputDir
			}

			conc, err := engine.ReadConcordance(filepath.Join(outputDir, "concordance.json"))
			if err != nil {
				return err
			}

			m := conc.Metadata
			fmt.Printf("Run %s (%s)\n", m.RunID, m.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Printf("  models: embed=%s adjudicate=%s\n", m.EmbeddingModel, m.AdjudicationModel)
			fmt.Printf("  thresholds: floor=%.2f merge=%.2f enriched=%v\n",
				m.CandidateFloor, m.MergeThreshold, m.Enriched)

			s := conc.Stats
			fmt.Printf("%d clusters, %d entities, %d singletons, %.0f%% enriched\n",
				s.ClusterCount, s.EntityCount, s.SingletonCount, s.EnrichmentCoverage*100)
			for _, cat := range types.AllCategories {
				if n := s.CategoryHistogram[cat]; n > 0 {
					fmt.Printf("  %-12s %d\n", cat, n)
				}
			}

			// Largest clusters first.
			clusters := make([]types.Cluster, len(conc.Clusters))
			copy(clusters, conc.Clusters)
			sort.SliceStable(clusters, func(i, j int) bool {
				return len(clusters[i].Members) > len(clusters[j].Members)
			})
			if top > len(clusters) {
				top = len(clusters)
			}
			if top > 0 {
				fmt.Printf("Top %d clusters by membership:\n", top)
				for _, c := range clusters[:top] {
					identified := ""
					if c.GroundTruth != nil {
						identified = " -> " + c.GroundTruth.ModernName
					}
					fmt.Printf("  %-30s %d members, %d books, %d mentions%s\n",
						c.StableKey, len(c.Members), c.BookCount, c.TotalMentions, identified)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory containing concordance.json")
	cmd.Flags().IntVar(&top, "top", 10, "Number of largest clusters to list")
	return cmd
}
