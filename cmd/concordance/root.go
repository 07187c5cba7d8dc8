package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "concordance",
		Short:         "Build a cross-text concordance of premodern entity mentions",
		Long: `concordance links entity mentions across early modern books into a
unified reference work: the same plant, person, substance or disease
appearing under different names, spellings and languages is grouped into
one cluster, enriched with modern identifications where possible.

Configuration comes from CONCORDANCE_* environment variables; run
"concordance build --help" for the common overrides.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newStatsCommand())

	return rootCmd
}
