package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/benjaminbreen/premodern-concordance/internal/config"
	"github.com/benjaminbreen/premodern-concordance/internal/corpus"
	"github.com/benjaminbreen/premodern-concordance/internal/engine"
	"github.com/benjaminbreen/premodern-concordance/internal/llm"
)

func newBuildCommand() *cobra.Command {
	var (
		manifest  string
		outputDir string
		noEnrich  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the full pipeline and export the concordance artifacts",
		Long: `Build loads the corpus manifest, embeds every entity, links mentions
across books and writes concordance.json and neighbors.json into the
output directory. Embeddings are cached, so an interrupted run resumes
without recomputing finished work.

Examples:
  concordance build
  concordance build --manifest ./corpus.yaml --output ./output
  concordance build --no-enrich     # skip authority lookups`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if manifest != "" {
				cfg.Corpus.ManifestPath = manifest
			}
			if outputDir != "" {
				cfg.Corpus.OutputDir = outputDir
			}
			if noEnrich {
				cfg.Authority.Enabled = false
			}

			c, err := corpus.Load(cfg.Corpus.ManifestPath)
			if err != nil {
				return fmt.Errorf("load corpus: %w", err)
			}

			embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
			if err != nil {
				return fmt.Errorf("configure embedding provider: %w", err)
			}
			textGen, err := llm.NewTextGenerator(cfg.LLM)
			if err != nil {
				return fmt.Errorf("configure adjudication provider: %w", err)
			}

			cache, err := newEmbeddingCache(cfg.Cache)
			if err != nil {
				return fmt.Errorf("open embedding cache: %w", err)
			}
			defer cache.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipeline := engine.NewPipeline(
				engineConfig(cfg),
				embedder,
				cache,
				engine.NewLLMAdjudicator(textGen),
				newEnricher(cfg.Authority),
			)

			result, err := pipeline.Run(ctx, c)
			if err != nil {
				return err
			}
			if err := result.Export(cfg.Corpus.OutputDir); err != nil {
				return err
			}

			stats := result.Concordance.Stats
			fmt.Printf("Wrote %d clusters (%d singletons) for %d entities to %s\n",
				stats.ClusterCount, stats.SingletonCount, stats.EntityCount, cfg.Corpus.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Path to the corpus manifest YAML")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for exported artifacts")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip authority enrichment lookups")

	return cmd
}
