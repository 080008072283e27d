package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"blogsmith/internal/config"
	"blogsmith/internal/core"
	"blogsmith/internal/dedup"
	"blogsmith/internal/fetch"
	"blogsmith/internal/generate"
	"blogsmith/internal/llm"
	"blogsmith/internal/quality"
	"blogsmith/internal/store"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	var (
		topic       string
		sourceURLs  []string
		sourceFiles []string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an article for a topic from source material",
		Long: `Generate runs the full pipeline: prompt construction, backend
generation with retries, validation, quality scoring and duplicate checking.
Sources can be URLs (fetched and cleaned) or local text files. With
--dry-run the fingerprint store is in-memory, so nothing is recorded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if topic == "" {
				return fmt.Errorf("--topic is required")
			}
			if len(sourceURLs) == 0 && len(sourceFiles) == 0 {
				return fmt.Errorf("at least one --source-url or --source-file is required")
			}
			return runGenerate(cmd.Context(), topic, sourceURLs, sourceFiles, dryRun)
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "topic/title for the article")
	cmd.Flags().StringSliceVar(&sourceURLs, "source-url", nil, "source URL to fetch (repeatable)")
	cmd.Flags().StringSliceVar(&sourceFiles, "source-file", nil, "local text file with source material (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not persist the fingerprint on acceptance")

	return cmd
}

func runGenerate(ctx context.Context, topic string, sourceURLs, sourceFiles []string, dryRun bool) error {
	cfg := config.Get()

	sources, err := collectSources(ctx, cfg, sourceURLs, sourceFiles)
	if err != nil {
		return err
	}

	backend, err := llm.NewClient(cfg.Gemini.Model)
	if err != nil {
		return err
	}

	fpStore, closeStore, err := openStore(cfg, dryRun)
	if err != nil {
		return err
	}
	defer closeStore()

	generator := buildGenerator(cfg, backend, fpStore)

	fmt.Printf("Generating article for %q from %d sources...\n", topic, len(sources))
	result, err := generator.GenerateArticle(ctx, topic, sources)
	if err != nil {
		var failure *core.GenerationFailure
		if errors.As(err, &failure) {
			return fmt.Errorf("generation failed: %s (attempts: %d, last strategy: %s)",
				failure.Kind, failure.AttemptsConsumed, failure.LastStrategy)
		}
		return err
	}

	printResult(result)

	if dryRun {
		fmt.Println("\nDry run: article not written, fingerprint not persisted.")
		return nil
	}
	return writeArticle(cfg.App.OutputDir, result)
}

// collectSources fetches URLs and reads local files into SourceDocuments.
func collectSources(ctx context.Context, cfg *config.Config, urls, files []string) ([]core.SourceDocument, error) {
	var sources []core.SourceDocument

	if len(urls) > 0 {
		fetcher := fetch.NewFetcher(cfg.Fetch.TimeoutDuration(), cfg.Fetch.UserAgent)
		for _, url := range urls {
			doc, err := fetcher.FetchSource(ctx, url)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: skipping source %s: %v\n", url, err)
				continue
			}
			sources = append(sources, *doc)
		}
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read source file %s: %w", file, err)
		}
		sources = append(sources, core.SourceDocument{
			Text:      string(data),
			URL:       "file://" + file,
			FetchedAt: time.Now().UTC(),
		})
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no usable sources: all fetches failed")
	}
	return sources, nil
}

// openStore returns the fingerprint store: SQLite normally, in-memory for
// dry runs.
func openStore(cfg *config.Config, dryRun bool) (dedup.FingerprintStore, func(), error) {
	if dryRun {
		return store.NewMemory(), func() {}, nil
	}
	s, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

// buildGenerator assembles the pipeline from configuration.
func buildGenerator(cfg *config.Config, backend generate.Backend, fpStore dedup.FingerprintStore) *generate.Generator {
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

	deduper := dedup.New(fpStore, dedup.Options{
		TitleThreshold:   cfg.Dedup.TitleThreshold,
		BodyThreshold:    cfg.Dedup.BodyThreshold,
		RecencyWindow:    cfg.Dedup.RecencyWindow(),
		BodyShingleSize:  cfg.Dedup.BodyShingleSize,
		TitleShingleSize: cfg.Dedup.TitleShingleSize,
	})

	return generate.New(backend, scorer, deduper, fpStore, generate.Options{
		MaxRetriesPerStrategy: cfg.Generation.MaxRetriesPerStrategy,
		InitialBackoff:        cfg.Generation.InitialBackoffDuration(),
		MaxBackoff:            cfg.Generation.MaxBackoffDuration(),
		QualityFloor:          cfg.Generation.QualityFloor,
		MinWordCount:          cfg.Generation.MinWordCount,
		PreflightDedup:        cfg.Generation.PreflightDedup,
	})
}

func printResult(result *core.ContentResult) {
	fmt.Printf("\n✓ Article accepted\n")
	fmt.Printf("  Strategy:  %s (attempt %d)\n", result.StrategyUsed, result.AttemptsConsumed)
	fmt.Printf("  Words:     %d\n", result.WordCount)
	fmt.Printf("  Quality:   %.1f (readability %.1f, seo %.1f, engagement %.1f, technical %.1f)\n",
		result.Quality.Overall, result.Quality.Readability, result.Quality.SEO,
		result.Quality.Engagement, result.Quality.Technical)
	if len(result.Quality.Recommendations) > 0 {
		fmt.Println("  Recommendations:")
		for _, rec := range result.Quality.Recommendations {
			fmt.Printf("    - %s\n", rec)
		}
	}
}

// writeArticle saves the accepted article under the output directory.
func writeArticle(outputDir string, result *core.ContentResult) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.md", result.GeneratedAt.Format("2006-01-02"), slugify(result.Title))
	path := filepath.Join(outputDir, filename)

	if err := os.WriteFile(path, []byte(result.Text), 0644); err != nil {
		return fmt.Errorf("failed to write article: %w", err)
	}
	fmt.Printf("\nSaved article to %s\n", path)
	return nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	if slug == "" {
		slug = "article"
	}
	return slug
}
