// Package handlers wires the CLI commands to the generation pipeline.
package handlers

import (
	"fmt"
	"os"

	"blogsmith/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blogsmith",
		Short: "Generate validated, de-duplicated blog articles from source material",
		Long: `Blogsmith - automated article generation pipeline

Turns a topic and scraped source texts into a validated, quality-scored,
de-duplicated article. Generation walks a ladder of prompt strategies
(structured → detailed → standard → minimal) against the backend with
retries and backoff; accepted articles are fingerprinted so near-term
republishing of the same content is rejected.

Examples:
  # Generate an article from two source URLs
  blogsmith generate --topic "Solar Energy Trends" \
    --source-url https://example.com/a --source-url https://example.com/b

  # Score an existing draft
  blogsmith score draft.md --title "Solar Energy Trends"

  # Inspect or prune the fingerprint store
  blogsmith fingerprints stats
  blogsmith fingerprints prune`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .blogsmith.yaml)")

	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewScoreCmd())
	rootCmd.AddCommand(NewFingerprintsCmd())

	cobra.OnInitialize(initConfig)

	return rootCmd
}

// initConfig reads the config file and environment variables.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		// Keep going; environment variables and defaults still apply.
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
