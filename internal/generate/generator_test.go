package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"blogsmith/internal/core"
	"blogsmith/internal/dedup"
	"blogsmith/internal/quality"
	"blogsmith/internal/store"
)

// scriptedBackend replays a fixed sequence of responses. Calls beyond the
// script repeat the last entry.
type scriptedBackend struct {
	mu        sync.Mutex
	calls     int
	responses []backendResponse
}

type backendResponse struct {
	text string
	err  error
}

func (b *scriptedBackend) GenerateText(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	idx := b.calls - 1
	if idx >= len(b.responses) {
		idx = len(b.responses) - 1
	}
	r := b.responses[idx]
	return r.text, r.err
}

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// failRecordStore delegates reads but fails every Record.
type failRecordStore struct {
	dedup.FingerprintStore
}

func (f *failRecordStore) Record(ctx context.Context, fp core.ContentFingerprint) error {
	return errors.New("disk full")
}

// goodArticle builds a backend response that clears validation, the quality
// floor and (for distinct variants) the duplicate check.
func goodArticle(variant string) string {
	var b strings.Builder
	b.WriteString("## Introduction and Overview\n\n")
	b.WriteString("This analysis presents a summary of recent technology and industry developments. ")
	b.WriteString("Furthermore, research shows sustained growth driven by innovation. ")
	b.WriteString("However, experts believe the market outlook varies by region. ")
	b.WriteString("What should readers watch next? Learn more in the sections below.\n\n")
	b.WriteString("## Key Findings\n\n")
	for i := 0; i < 6; i++ {
		b.WriteString(fmt.Sprintf("- Observation %d drawn from the %s dataset\n", i+1, variant))
	}
	b.WriteString("\n## Detailed Discussion\n\n")
	b.WriteString("The **core** finding uses `metrics` from the [report](https://example.com/r) and *context*. ")
	for i := 0; i < 320; i++ {
		b.WriteString(fmt.Sprintf("%s%d ", variant, i))
		if i%11 == 10 {
			b.WriteString(". ")
		}
	}
	b.WriteString("\n\n## Conclusion\n\nTherefore the findings hold. Try this approach and discover what applies. Should you explore further? Yes.\n")
	return b.String()
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.InitialBackoff = time.Millisecond
	opts.MaxBackoff = 5 * time.Millisecond
	return opts
}

func newTestGenerator(backend Backend, opts Options) (*Generator, *store.Memory) {
	mem := store.NewMemory()
	scorer := quality.NewScorerWithDefaults()
	deduper := dedup.NewWithDefaults(mem)
	return New(backend, scorer, deduper, mem, opts), mem
}

func testSources() []core.SourceDocument {
	return []core.SourceDocument{
		{Text: "First source describing recent deployments and cost trends.", URL: "https://example.com/a", FetchedAt: time.Now().UTC()},
		{Text: "Second source covering regulatory changes and market reaction.", URL: "https://example.com/b", FetchedAt: time.Now().UTC()},
	}
}

func TestGenerateArticle_FirstAttemptSucceeds(t *testing.T) {
	backend := &scriptedBackend{responses: []backendResponse{
		{text: goodArticle("alpha")},
	}}
	gen, mem := newTestGenerator(backend, testOptions())

	result, err := gen.GenerateArticle(context.Background(), "Technology Adoption Patterns in 2026", testSources())
	if err != nil {
		t.Fatalf("GenerateArticle failed: %v", err)
	}

	if result.StrategyUsed != core.StrategyStructured {
		t.Errorf("Expected strategy %q, got %q", core.StrategyStructured, result.StrategyUsed)
	}
	if result.AttemptsConsumed != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.AttemptsConsumed)
	}
	if backend.callCount() != 1 {
		t.Errorf("Expected 1 backend call, got %d", backend.callCount())
	}
	if !result.ValidationPassed {
		t.Error("Accepted result should report validation passed")
	}
	if result.ID == "" {
		t.Error("Accepted result should carry an ID")
	}
	if result.WordCount != len(strings.Fields(result.Text)) {
		t.Error("Word count should be recomputed from the final text")
	}
	if result.Quality.Overall < DefaultOptions().QualityFloor {
		t.Errorf("Accepted result quality %.1f is below the floor", result.Quality.Overall)
	}
	if mem.Len() != 1 {
		t.Errorf("Accepted article should record exactly one fingerprint, got %d", mem.Len())
	}
	if result.Fingerprint.ContentHash == "" {
		t.Error("Result should carry the recorded fingerprint")
	}
}

func TestGenerateArticle_RetriesThenEscalates(t *testing.T) {
	// Three backend failures exhaust the structured rung; the fourth call,
	// first at detailed, succeeds.
	backendErr := errors.New("backend unavailable")
	backend := &scriptedBackend{responses: []backendResponse{
		{err: backendErr},
		{err: backendErr},
		{err: backendErr},
		{text: goodArticle("bravo")},
	}}
	gen, _ := newTestGenerator(backend, testOptions())

	result, err := gen.GenerateArticle(context.Background(), "Technology Adoption Patterns in 2026", testSources())
	if err != nil {
		t.Fatalf("GenerateArticle failed: %v", err)
	}

	if result.StrategyUsed != core.StrategyDetailed {
		t.Errorf("Expected strategy %q, got %q", core.StrategyDetailed, result.StrategyUsed)
	}
	if result.AttemptsConsumed != 4 {
		t.Errorf("Expected 4 attempts consumed, got %d", result.AttemptsConsumed)
	}
	if backend.callCount() != 4 {
		t.Errorf("Expected 4 backend calls, got %d", backend.callCount())
	}
}

func TestGenerateArticle_InvalidOutputRetried(t *testing.T) {
	// Output below the minimum word count fails validation and is retried
	// like a backend error.
	backend := &scriptedBackend{responses: []backendResponse{
		{text: "Far too short to publish."},
		{text: goodArticle("charlie")},
	}}
	gen, _ := newTestGenerator(backend, testOptions())

	result, err := gen.GenerateArticle(context.Background(), "Technology Adoption Patterns in 2026", testSources())
	if err != nil {
		t.Fatalf("GenerateArticle failed: %v", err)
	}
	if result.AttemptsConsumed != 2 {
		t.Errorf("Expected 2 attempts, got %d", result.AttemptsConsumed)
	}
	if result.StrategyUsed != core.StrategyStructured {
		t.Errorf("Invalid output should be retried at the same rung, got %q", result.StrategyUsed)
	}
}

func TestGenerateArticle_AllStrategiesExhausted(t *testing.T) {
	backend := &scriptedBackend{responses: []backendResponse{
		{err: errors.New("backend unavailable")},
	}}
	opts := testOptions()
	gen, mem := newTestGenerator(backend, opts)

	result, err := gen.GenerateArticle(context.Background(), "Technology Adoption Patterns in 2026", testSources())
	if result != nil {
		t.Fatal("Exhausted run should not produce a result")
	}

	var failure *core.GenerationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected GenerationFailure, got %T: %v", err, err)
	}
	if failure.Kind != core.FailureExhaustedStrategies {
		t.Errorf("Expected kind %q, got %q", core.FailureExhaustedStrategies, failure.Kind)
	}
	wantAttempts := opts.MaxRetriesPerStrategy * len(Ladder())
	if failure.AttemptsConsumed != wantAttempts {
		t.Errorf("Expected %d attempts consumed, got %d", wantAttempts, failure.AttemptsConsumed)
	}
	if failure.LastStrategy != core.StrategyMinimal {
		t.Errorf("Expected last strategy %q, got %q", core.StrategyMinimal, failure.LastStrategy)
	}
	if mem.Len() != 0 {
		t.Errorf("Failed run should record nothing, got %d fingerprints", mem.Len())
	}
}

func TestGenerateArticle_DuplicateEscalatesLadder(t *testing.T) {
	// A prior article on the same topic makes every candidate a title
	// duplicate: each rung ends after one attempt and the run fails as
	// duplicate content.
	backend := &scriptedBackend{responses: []backendResponse{
		{text: goodArticle("delta")},
	}}
	gen, mem := newTestGenerator(backend, testOptions())
	ctx := context.Background()
	topic := "Technology Adoption Patterns in 2026"

	deduper := dedup.NewWithDefaults(mem)
	prior := deduper.Fingerprint(topic, topic, goodArticle("prior"))
	if err := mem.Record(ctx, prior); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	result, err := gen.GenerateArticle(ctx, topic, testSources())
	if result != nil {
		t.Fatal("Duplicate run should not produce a result")
	}

	var failure *core.GenerationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected GenerationFailure, got %T: %v", err, err)
	}
	if failure.Kind != core.FailureDuplicateContent {
		t.Errorf("Expected kind %q, got %q", core.FailureDuplicateContent, failure.Kind)
	}
	// Duplicates are never retried at the same rung, so exactly one attempt
	// per strategy.
	if failure.AttemptsConsumed != len(Ladder()) {
		t.Errorf("Expected %d attempts, got %d", len(Ladder()), failure.AttemptsConsumed)
	}
	if backend.callCount() != len(Ladder()) {
		t.Errorf("Expected %d backend calls, got %d", len(Ladder()), backend.callCount())
	}
	if mem.Len() != 1 {
		t.Errorf("Only the prior fingerprint should be stored, got %d", mem.Len())
	}
}

func TestGenerateArticle_StorageFailureIsTerminal(t *testing.T) {
	backend := &scriptedBackend{responses: []backendResponse{
		{text: goodArticle("echo")},
	}}
	mem := store.NewMemory()
	failing := &failRecordStore{FingerprintStore: mem}
	gen := New(backend, quality.NewScorerWithDefaults(), dedup.NewWithDefaults(failing), failing, testOptions())

	result, err := gen.GenerateArticle(context.Background(), "Technology Adoption Patterns in 2026", testSources())
	if result != nil {
		t.Fatal("Storage failure should not produce a result")
	}

	var failure *core.GenerationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected GenerationFailure, got %T: %v", err, err)
	}
	if failure.Kind != core.FailureStorage {
		t.Errorf("Expected kind %q, got %q", core.FailureStorage, failure.Kind)
	}
	// The store failure must not be retried or escalated.
	if backend.callCount() != 1 {
		t.Errorf("Expected 1 backend call, got %d", backend.callCount())
	}
}

func TestGenerateArticle_EmptyTopic(t *testing.T) {
	backend := &scriptedBackend{responses: []backendResponse{{text: goodArticle("foxtrot")}}}
	gen, _ := newTestGenerator(backend, testOptions())

	_, err := gen.GenerateArticle(context.Background(), "   ", testSources())

	var failure *core.GenerationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected GenerationFailure, got %T: %v", err, err)
	}
	if failure.Kind != core.FailureInvalidInput {
		t.Errorf("Expected kind %q, got %q", core.FailureInvalidInput, failure.Kind)
	}
	if backend.callCount() != 0 {
		t.Errorf("Invalid input should make no backend calls, got %d", backend.callCount())
	}
}

func TestGenerateArticle_NoSources(t *testing.T) {
	backend := &scriptedBackend{responses: []backendResponse{{text: goodArticle("golf")}}}
	gen, _ := newTestGenerator(backend, testOptions())

	_, err := gen.GenerateArticle(context.Background(), "Technology Adoption Patterns in 2026", nil)

	var failure *core.GenerationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected GenerationFailure, got %T: %v", err, err)
	}
	if failure.Kind != core.FailureInvalidInput {
		t.Errorf("Expected kind %q, got %q", core.FailureInvalidInput, failure.Kind)
	}
	if backend.callCount() != 0 {
		t.Errorf("Invalid input should make no backend calls, got %d", backend.callCount())
	}
}

func TestGenerateArticle_ContextCancelled(t *testing.T) {
	backend := &scriptedBackend{responses: []backendResponse{
		{err: errors.New("backend unavailable")},
	}}
	gen, _ := newTestGenerator(backend, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := gen.GenerateArticle(ctx, "Technology Adoption Patterns in 2026", testSources())
	if result != nil {
		t.Fatal("Cancelled run should not produce a result")
	}
	if err == nil {
		t.Fatal("Cancelled run should fail")
	}
	// Cancellation stops the ladder early instead of walking all rungs.
	if backend.callCount() >= DefaultOptions().MaxRetriesPerStrategy*len(Ladder()) {
		t.Errorf("Cancelled run should stop early, made %d calls", backend.callCount())
	}

	// The failure reports the rung the run actually ended on, not the
	// bottom of the ladder.
	var failure *core.GenerationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected GenerationFailure, got %T: %v", err, err)
	}
	if failure.LastStrategy != core.StrategyStructured {
		t.Errorf("Expected last strategy %q, got %q", core.StrategyStructured, failure.LastStrategy)
	}
}

func TestGenerateArticle_RecoversTopicAfterWindow(t *testing.T) {
	// A fingerprint older than the recency window exempts the topic: the
	// identical article is accepted again and its fingerprint refreshed
	// rather than duplicated or rejected.
	backend := &scriptedBackend{responses: []backendResponse{
		{text: goodArticle("hotel")},
	}}
	gen, mem := newTestGenerator(backend, testOptions())
	ctx := context.Background()
	topic := "Technology Adoption Patterns in 2026"

	deduper := dedup.NewWithDefaults(mem)
	prior := deduper.Fingerprint(topic, topic, goodArticle("hotel"))
	prior.CreatedAt = time.Now().UTC().Add(-15 * 24 * time.Hour)
	if err := mem.Record(ctx, prior); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	result, err := gen.GenerateArticle(ctx, topic, testSources())
	if err != nil {
		t.Fatalf("GenerateArticle failed: %v", err)
	}
	if result.StrategyUsed != core.StrategyStructured {
		t.Errorf("Expected acceptance at %q, got %q", core.StrategyStructured, result.StrategyUsed)
	}
	if mem.Len() != 1 {
		t.Errorf("Refreshed fingerprint should replace the stale one, got %d entries", mem.Len())
	}
	if !result.Fingerprint.CreatedAt.After(prior.CreatedAt) {
		t.Error("Accepted fingerprint should carry a fresh timestamp")
	}
}

func TestWaitBackoff_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := waitBackoff(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestWaitBackoff_ZeroDelay(t *testing.T) {
	if err := waitBackoff(context.Background(), 0); err != nil {
		t.Errorf("Zero delay should return immediately, got %v", err)
	}
}
