package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benjaminbreen/premodern-concordance/internal/config"
	"github.com/benjaminbreen/premodern-concordance/internal/corpus"
	"github.com/benjaminbreen/premodern-concordance/pkg/types"
)

func newValidateCommand() *cobra.Command {
	var manifest string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the corpus manifest and entity files without running the pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifest == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				manifest = cfg.Corpus.ManifestPath
			}

			c, err := corpus.Load(manifest)
			if err != nil {
				return fmt.Errorf("corpus is invalid: %w", err)
			}

			perBook := make(map[string]int)
			perCategory := make(map[types.Category]int)
			for i := range c.Entities {
				perBook[c.Entities[i].BookID]++
				perCategory[c.Entities[i].Category]++
			}

			fmt.Printf("Corpus OK: %d books, %d entities\n", len(c.Books), len(c.Entities))
			for _, b := range c.Books {
				fmt.Printf("  %-20s %-40s %d entities\n", b.ID, b.Title, perBook[b.ID])
			}
			fmt.Println("By category:")
			for _, cat := range types.AllCategories {
				if n := perCategory[cat]; n > 0 {
					fmt.Printf("  %-12s %d\n", cat, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Path to the corpus manifest YAML")
	return cmd
}
