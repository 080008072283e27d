package handlers

import (
	"fmt"
	"os"

	"blogsmith/internal/config"
	"blogsmith/internal/quality"

	"github.com/spf13/cobra"
)

// NewScoreCmd creates the score command.
func NewScoreCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "score FILE",
		Short: "Score an article draft without generating anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			cfg := config.Get()
			scorer := quality.NewScorer(quality.Options{
				MinWordCount:    cfg.Quality.MinWordCount,
				MaxWordCount:    cfg.Quality.MaxWordCount,
				TargetWordCount: cfg.Quality.TargetWordCount,
				Weights: quality.Weights{
					Readability: cfg.Quality.Weights.Readability,
					SEO:         cfg.Quality.Weights.SEO,
					Engagement:  cfg.Quality.Weights.Engagement,
					Technical:   cfg.Quality.Weights.Technical,
				},
			})

			score, err := scorer.Score(string(data), title)
			if err != nil {
				return err
			}

			fmt.Printf("Overall:     %.1f\n", score.Overall)
			fmt.Printf("Readability: %.1f\n", score.Readability)
			fmt.Printf("SEO:         %.1f\n", score.SEO)
			fmt.Printf("Engagement:  %.1f\n", score.Engagement)
			fmt.Printf("Technical:   %.1f\n", score.Technical)
			if len(score.Recommendations) > 0 {
				fmt.Println("Recommendations:")
				for _, rec := range score.Recommendations {
					fmt.Printf("  - %s\n", rec)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "title to score the draft against")

	return cmd
}
