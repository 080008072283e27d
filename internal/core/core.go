package core

import (
	"fmt"
	"time"
)

// Strategy identifies one rung of the prompt strategy ladder.
type Strategy string

const (
	StrategyStructured Strategy = "structured" // Full outline and constraints
	StrategyDetailed   Strategy = "detailed"   // Looser outline
	StrategyStandard   Strategy = "standard"   // Minimal instructions
	StrategyMinimal    Strategy = "minimal"    // Bare topic plus sources, last resort
)

// Strategies is the ladder in escalation order. Traversal is strictly
// forward; a lower index is never revisited once advanced past.
var Strategies = []Strategy{
	StrategyStructured,
	StrategyDetailed,
	StrategyStandard,
	StrategyMinimal,
}

// SourceDocument is one piece of scraped source material. It is owned by the
// caller and never mutated by the pipeline.
type SourceDocument struct {
	Text      string    `json:"text"`       // Extracted plain text of the source
	URL       string    `json:"url"`        // Where the text was fetched from
	FetchedAt time.Time `json:"fetched_at"` // Timestamp when the source was fetched
}

// GenerationRequest describes one attempt against the generation backend.
type GenerationRequest struct {
	Topic         string           `json:"topic"`          // Topic/title the article is about
	Sources       []SourceDocument `json:"sources"`        // Source material, must be non-empty
	StrategyIndex int              `json:"strategy_index"` // Index into Strategies for this attempt
}

// RawGenerationOutput is the unvalidated text returned by the backend.
// It is never persisted directly.
type RawGenerationOutput struct {
	Text          string   `json:"text"`           // Raw response text, untrusted
	StrategyUsed  Strategy `json:"strategy_used"`  // Strategy that produced it
	AttemptNumber int      `json:"attempt_number"` // 1-based attempt counter across the whole run
}

// ContentFingerprint is the persistent dedup record for an accepted article.
// It is created only after validation, quality and dedup checks all passed,
// and is immutable once recorded.
type ContentFingerprint struct {
	ContentHash   string    `json:"content_hash"`   // SHA-256 hex digest of the normalized body
	Title         string    `json:"title"`          // Original title, kept for fuzzy comparison
	TitleShingles []string  `json:"title_shingles"` // Token n-grams of the normalized title
	BodyShingles  []string  `json:"body_shingles"`  // Token n-grams of the normalized body
	WordCount     int       `json:"word_count"`     // Word count of the accepted text
	SourceTopic   string    `json:"source_topic"`   // Topic the article was generated for
	CreatedAt     time.Time `json:"created_at"`     // Timestamp of acceptance
}

// QualityScore is the composite quality assessment of a candidate article.
// It is derived and recomputed per candidate, never persisted on its own.
type QualityScore struct {
	Overall         float64  `json:"overall"`         // Weighted composite, 0-100
	Readability     float64  `json:"readability"`     // Flesch-style readability, 0-100
	SEO             float64  `json:"seo"`             // Title/length/header/keyword factors, 0-100
	Engagement      float64  `json:"engagement"`      // Questions, lists, CTA phrases, 0-100
	Technical       float64  `json:"technical"`       // Formatting and structure, 0-100
	Recommendations []string `json:"recommendations"` // Actionable improvement hints
}

// ContentResult is the terminal success artifact returned to the caller.
// Ownership transfers to the publishing collaborator.
type ContentResult struct {
	ID               string             `json:"id"`                // Unique identifier for the result
	Title            string             `json:"title"`             // Article title (the topic)
	Text             string             `json:"text"`              // Final validated article text
	WordCount        int                `json:"word_count"`        // Recomputed from the final text
	Quality          QualityScore       `json:"quality"`           // Quality assessment of the final text
	Fingerprint      ContentFingerprint `json:"fingerprint"`       // Fingerprint recorded for this article
	ValidationPassed bool               `json:"validation_passed"` // Always true on success
	StrategyUsed     Strategy           `json:"strategy_used"`     // Strategy that produced the accepted text
	AttemptsConsumed int                `json:"attempts_consumed"` // Backend attempts spent across the run
	GeneratedAt      time.Time          `json:"generated_at"`      // Timestamp of acceptance
}

// FailureKind classifies terminal pipeline failures.
type FailureKind string

const (
	FailureInvalidInput        FailureKind = "invalid_input"        // Empty topic or sources, nothing attempted
	FailureExhaustedStrategies FailureKind = "exhausted_strategies" // Every rung of the ladder failed
	FailureDuplicateContent    FailureKind = "duplicate_content"    // Ladder exhausted on duplicate verdicts
	FailureStorage             FailureKind = "storage_error"        // Fingerprint record could not be committed
)

// GenerationFailure is the typed terminal error surfaced by the pipeline.
// Transient backend and validation errors are absorbed by the orchestrator's
// retry logic; callers only ever see one of these.
type GenerationFailure struct {
	Kind             FailureKind `json:"kind"`               // What category of failure this is
	AttemptsConsumed int         `json:"attempts_consumed"`  // Backend attempts spent before giving up
	LastStrategy     Strategy    `json:"last_strategy_used"` // Last strategy in play when the run ended
	Err              error       `json:"-"`                  // Underlying cause, if any
}

func (f *GenerationFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("generation failed (%s) after %d attempts at strategy %q: %v",
			f.Kind, f.AttemptsConsumed, f.LastStrategy, f.Err)
	}
	return fmt.Sprintf("generation failed (%s) after %d attempts at strategy %q",
		f.Kind, f.AttemptsConsumed, f.LastStrategy)
}

func (f *GenerationFailure) Unwrap() error { return f.Err }
