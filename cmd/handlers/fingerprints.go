package handlers

import (
	"fmt"

	"blogsmith/internal/config"
	"blogsmith/internal/store"

	"github.com/spf13/cobra"
)

// NewFingerprintsCmd creates the fingerprints command group.
func NewFingerprintsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprints",
		Short: "Inspect and maintain the content fingerprint store",
	}

	cmd.AddCommand(newFingerprintsStatsCmd())
	cmd.AddCommand(newFingerprintsPruneCmd())

	return cmd
}

func newFingerprintsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fingerprint store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			s, err := store.NewStore(cfg.App.DataDir)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			stats, err := s.GetStats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Total fingerprints:       %d\n", stats.TotalFingerprints)
			fmt.Printf("Recorded in last 7 days:  %d\n", stats.RecentFingerprints)
			fmt.Printf("Recency window (days):    %d\n", cfg.Dedup.RecencyDays)
			fmt.Printf("Retention (days):         %d\n", cfg.Dedup.RetentionDays)
			return nil
		},
	}
}

func newFingerprintsPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete fingerprints older than the retention horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			s, err := store.NewStore(cfg.App.DataDir)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			removed, err := s.PruneOlderThan(cmd.Context(), cfg.Dedup.RetentionHorizon())
			if err != nil {
				return err
			}

			fmt.Printf("Pruned %d fingerprints older than %d days\n", removed, cfg.Dedup.RetentionDays)
			return nil
		},
	}
}
