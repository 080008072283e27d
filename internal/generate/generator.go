// Package generate drives the content generation pipeline: it walks the
// prompt strategy ladder against the generation backend, validates and
// scores raw output, checks the candidate against the fingerprint store, and
// returns either a complete ContentResult or a typed GenerationFailure.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/dedup"
	"blogsmith/internal/logger"
	"blogsmith/internal/quality"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// Backend is the generation service contract. The call must honor the
// context deadline; it is the pipeline's only suspension point.
type Backend interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Options configures the orchestrator.
type Options struct {
	MaxRetriesPerStrategy int           // Backend attempts per ladder rung
	InitialBackoff        time.Duration // First retry delay, doubled per retry
	MaxBackoff            time.Duration // Retry delay cap
	QualityFloor          float64       // Composite scores below this are retried
	MinWordCount          int           // Structural minimum for raw output
	PreflightDedup        bool          // Screen topic+sources before any backend call
}

// DefaultOptions returns the default pipeline configuration.
func DefaultOptions() Options {
	return Options{
		MaxRetriesPerStrategy: 3,
		InitialBackoff:        2 * time.Second,
		MaxBackoff:            30 * time.Second,
		QualityFloor:          40,
		MinWordCount:          300,
		PreflightDedup:        false,
	}
}

// Generator runs one generation pipeline per GenerateArticle call. Multiple
// generators (or concurrent calls on one) share no mutable state beyond the
// fingerprint store, which handles its own synchronization.
type Generator struct {
	backend Backend
	scorer  *quality.Scorer
	deduper *dedup.Deduplicator
	store   dedup.FingerprintStore
	opts    Options
}

// New creates a Generator. The store passed here must be the one backing the
// Deduplicator so accepted fingerprints are visible to later checks.
func New(backend Backend, scorer *quality.Scorer, deduper *dedup.Deduplicator, store dedup.FingerprintStore, opts Options) *Generator {
	return &Generator{
		backend: backend,
		scorer:  scorer,
		deduper: deduper,
		store:   store,
		opts:    opts,
	}
}

// GenerateArticle is the single public entry point: it turns a topic and its
// source documents into a validated, scored, de-duplicated article. On
// failure it returns a *core.GenerationFailure; transient backend and
// validation errors are absorbed by retry and ladder escalation and never
// surface to the caller.
func (g *Generator) GenerateArticle(ctx context.Context, topic string, sources []core.SourceDocument) (*core.ContentResult, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, &core.GenerationFailure{
			Kind: core.FailureInvalidInput,
			Err:  errors.New("topic is empty"),
		}
	}
	if len(sources) == 0 {
		return nil, &core.GenerationFailure{
			Kind: core.FailureInvalidInput,
			Err:  errors.New("no source documents provided"),
		}
	}

	if g.opts.PreflightDedup {
		verdict, err := g.deduper.Check(ctx, topic, topic, preflightDigest(topic, sources))
		if err != nil {
			return nil, &core.GenerationFailure{Kind: core.FailureStorage, Err: err}
		}
		if verdict.IsDuplicate {
			logger.Info("Skipping generation, similar content already covered",
				"topic", topic, "reason", string(verdict.Reason), "similarity", verdict.Similarity)
			return nil, &core.GenerationFailure{
				Kind: core.FailureDuplicateContent,
				Err:  fmt.Errorf("preflight match (%s, similarity %.2f)", verdict.Reason, verdict.Similarity),
			}
		}
	}

	ladder := Ladder()
	attempts := 0
	duplicateAtLastStrategy := false
	lastStrategy := ladder[0].Name
	var lastErr error

	for idx, strategy := range ladder {
		lastStrategy = strategy.Name
		result, outcome, err := g.runStrategy(ctx, strategy, topic, sources, &attempts)
		switch outcome {
		case outcomeAccepted:
			return result, nil
		case outcomeFatal:
			return nil, &core.GenerationFailure{
				Kind:             core.FailureStorage,
				AttemptsConsumed: attempts,
				LastStrategy:     strategy.Name,
				Err:              err,
			}
		case outcomeDuplicate:
			duplicateAtLastStrategy = idx == len(ladder)-1
			lastErr = err
			logger.Warn("Duplicate content, escalating strategy ladder",
				"topic", topic, "strategy", string(strategy.Name))
		case outcomeExhausted:
			duplicateAtLastStrategy = false
			lastErr = err
			logger.Warn("Strategy exhausted, escalating",
				"topic", topic, "strategy", string(strategy.Name), "attempts", attempts)
		}

		if ctx.Err() != nil {
			break
		}
	}

	kind := core.FailureExhaustedStrategies
	if duplicateAtLastStrategy {
		kind = core.FailureDuplicateContent
	}
	return nil, &core.GenerationFailure{
		Kind:             kind,
		AttemptsConsumed: attempts,
		LastStrategy:     lastStrategy,
		Err:              lastErr,
	}
}

// strategyOutcome classifies how one ladder rung ended.
type strategyOutcome int

const (
	outcomeAccepted  strategyOutcome = iota // Article accepted and recorded
	outcomeExhausted                        // Retries spent on transient failures
	outcomeDuplicate                        // Dedup rejected; not retried at this rung
	outcomeFatal                            // Store failure, terminal
)

// runStrategy makes up to MaxRetriesPerStrategy attempts with one strategy.
// Transient failures (backend errors, timeouts, failed validation, sub-floor
// quality) are retried with exponential backoff; a duplicate verdict ends
// the rung immediately since retrying the same prompt reproduces the output.
func (g *Generator) runStrategy(ctx context.Context, strategy PromptStrategy, topic string, sources []core.SourceDocument, attempts *int) (*core.ContentResult, strategyOutcome, error) {
	bo := newRetryBackoff(g.opts)
	var lastErr error

	for retry := 0; retry < g.opts.MaxRetriesPerStrategy; retry++ {
		if retry > 0 {
			if err := waitBackoff(ctx, bo.NextBackOff()); err != nil {
				return nil, outcomeExhausted, err
			}
		}

		*attempts++
		raw, err := g.attempt(ctx, strategy, topic, sources, *attempts)
		if err != nil {
			lastErr = err
			logger.Warn("Generation attempt failed",
				"topic", topic, "strategy", string(strategy.Name), "attempt", *attempts, "error", err.Error())
			continue
		}

		score, err := g.scorer.Score(raw.Text, topic)
		if err != nil {
			lastErr = err
			continue
		}
		if score.Overall < g.opts.QualityFloor {
			lastErr = fmt.Errorf("quality score %.1f below floor %.1f", score.Overall, g.opts.QualityFloor)
			logger.Warn("Quality below acceptance floor",
				"topic", topic, "strategy", string(strategy.Name), "score", score.Overall)
			continue
		}

		verdict, err := g.deduper.Check(ctx, topic, topic, raw.Text)
		if err != nil {
			return nil, outcomeFatal, fmt.Errorf("dedup query failed: %w", err)
		}
		if verdict.IsDuplicate {
			return nil, outcomeDuplicate,
				fmt.Errorf("duplicate content (%s, similarity %.2f)", verdict.Reason, verdict.Similarity)
		}

		fingerprint := g.deduper.Fingerprint(topic, topic, raw.Text)
		if err := g.store.Record(ctx, fingerprint); err != nil {
			// An unrecorded accepted article risks future duplicate
			// admission, so this cannot be retried or swallowed.
			return nil, outcomeFatal, fmt.Errorf("failed to record fingerprint: %w", err)
		}

		result := &core.ContentResult{
			ID:               uuid.NewString(),
			Title:            topic,
			Text:             raw.Text,
			WordCount:        len(strings.Fields(raw.Text)),
			Quality:          score,
			Fingerprint:      fingerprint,
			ValidationPassed: true,
			StrategyUsed:     strategy.Name,
			AttemptsConsumed: *attempts,
			GeneratedAt:      time.Now().UTC(),
		}
		logger.Info("Generated content",
			"topic", topic, "strategy", string(strategy.Name),
			"words", result.WordCount, "quality", score.Overall, "attempts", *attempts)
		return result, outcomeAccepted, nil
	}

	return nil, outcomeExhausted, lastErr
}

// attempt makes a single context-bounded backend call and validates the raw
// output.
func (g *Generator) attempt(ctx context.Context, strategy PromptStrategy, topic string, sources []core.SourceDocument, attemptNumber int) (*core.RawGenerationOutput, error) {
	prompt := strategy.Build(topic, sources)

	callCtx, cancel := context.WithTimeout(ctx, strategy.Timeout)
	defer cancel()

	text, err := g.backend.GenerateText(callCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("backend call failed: %w", err)
	}

	validation := ValidateContent(text, g.opts.MinWordCount)
	if !validation.Valid {
		if len(validation.Issues) > 0 {
			return nil, fmt.Errorf("output validation failed: %s", strings.Join(validation.Issues, "; "))
		}
		return nil, fmt.Errorf("output validation failed: score %.2f below threshold", validation.Score)
	}

	return &core.RawGenerationOutput{
		Text:          text,
		StrategyUsed:  strategy.Name,
		AttemptNumber: attemptNumber,
	}, nil
}

// preflightDigest builds the pseudo-content checked against the store before
// spending backend calls: the topic plus the first sources, truncated.
func preflightDigest(topic string, sources []core.SourceDocument) string {
	texts := make([]string, 0, 3)
	for i, src := range sources {
		if i >= 3 {
			break
		}
		texts = append(texts, src.Text)
	}
	combined := strings.Join(texts, " ")
	if len(combined) > 1000 {
		combined = combined[:1000]
	}
	return topic + "\n\n" + combined
}

// newRetryBackoff builds the exponential retry policy for backend attempts.
func newRetryBackoff(opts Options) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.InitialBackoff
	bo.MaxInterval = opts.MaxBackoff
	bo.Multiplier = 2
	return bo
}

// waitBackoff sleeps for the given delay or returns early when the context
// is done.
func waitBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
