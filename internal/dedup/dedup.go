// Package dedup decides whether a candidate article is a near-duplicate of
// previously accepted output. It owns text normalization, fingerprinting and
// similarity scoring; persistence lives behind the FingerprintStore
// interface so tests can substitute an in-memory implementation.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"blogsmith/internal/core"

	"github.com/agnivade/levenshtein"
)

// Reason explains why a candidate was flagged as a duplicate.
type Reason string

const (
	ReasonExact Reason = "exact" // Identical normalized body hash
	ReasonTitle Reason = "title" // Fuzzy title ratio over threshold
	ReasonBody  Reason = "body"  // Shingle Jaccard over threshold
	ReasonNone  Reason = "none"  // Not a duplicate
)

// SimilarityQuery carries the candidate's fingerprint material into a store
// lookup, bounded by topic and recency window.
type SimilarityQuery struct {
	ContentHash   string    // SHA-256 of the candidate's normalized body
	Title         string    // Candidate title, original casing
	TitleShingles []string  // Shingles of the normalized title
	BodyShingles  []string  // Shingles of the normalized body
	Topic         string    // Topic scope for title comparison
	Since         time.Time // Fingerprints created before this are exempt
}

// Match is the best-scoring stored fingerprint for a query, with the
// per-metric similarities the Deduplicator needs to assign a reason.
type Match struct {
	Fingerprint     core.ContentFingerprint
	Exact           bool    // Content hashes are identical
	TitleSimilarity float64 // Edit-distance ratio of titles, 0-1
	BodySimilarity  float64 // Jaccard similarity of body shingles, 0-1
}

// Score is the composite used to rank matches within a store.
func (m Match) Score() float64 {
	if m.Exact {
		return 1.0
	}
	if m.BodySimilarity > m.TitleSimilarity {
		return m.BodySimilarity
	}
	return m.TitleSimilarity
}

// FingerprintStore is the persistence contract the Deduplicator consumes.
// Record must be durable before it returns; QuerySimilar reflects every
// Record that completed before the call began.
type FingerprintStore interface {
	Record(ctx context.Context, fp core.ContentFingerprint) error
	QuerySimilar(ctx context.Context, q SimilarityQuery) (*Match, error)
}

// Options tunes the duplicate policy. Thresholds are configuration, not
// contracts; defaults follow the documented policy.
type Options struct {
	TitleThreshold   float64       // Title ratio at or above this is a duplicate
	BodyThreshold    float64       // Body Jaccard at or above this is a duplicate
	RecencyWindow    time.Duration // Only fingerprints inside this window count
	BodyShingleSize  int           // Tokens per body shingle
	TitleShingleSize int           // Tokens per title shingle
}

// DefaultOptions returns the default duplicate policy.
func DefaultOptions() Options {
	return Options{
		TitleThreshold:   0.85,
		BodyThreshold:    0.6,
		RecencyWindow:    14 * 24 * time.Hour,
		BodyShingleSize:  5,
		TitleShingleSize: 2,
	}
}

// Verdict is the outcome of a duplicate check. The Deduplicator never
// mutates the store; recording an accepted fingerprint is the caller's job.
type Verdict struct {
	IsDuplicate bool
	Matched     *core.ContentFingerprint // Best match when duplicate, nil otherwise
	Similarity  float64                  // Similarity of the deciding metric
	Reason      Reason
}

// Deduplicator checks candidates against the fingerprint store.
type Deduplicator struct {
	store FingerprintStore
	opts  Options
}

// New creates a Deduplicator over the given store.
func New(store FingerprintStore, opts Options) *Deduplicator {
	return &Deduplicator{store: store, opts: opts}
}

// NewWithDefaults creates a Deduplicator with the default policy.
func NewWithDefaults(store FingerprintStore) *Deduplicator {
	return New(store, DefaultOptions())
}

// Fingerprint builds the persistent fingerprint for an accepted article.
func (d *Deduplicator) Fingerprint(topic, title, text string) core.ContentFingerprint {
	normalBody := NormalizeText(text)
	return core.ContentFingerprint{
		ContentHash:   HashText(normalBody),
		Title:         title,
		TitleShingles: Shingles(NormalizeText(title), d.opts.TitleShingleSize),
		BodyShingles:  Shingles(normalBody, d.opts.BodyShingleSize),
		WordCount:     len(strings.Fields(text)),
		SourceTopic:   topic,
		CreatedAt:     time.Now().UTC(),
	}
}

// Check queries the store for the nearest prior fingerprint and applies the
// duplicate thresholds. Exact hash beats title, title beats body.
func (d *Deduplicator) Check(ctx context.Context, topic, title, text string) (Verdict, error) {
	candidate := d.Fingerprint(topic, title, text)

	match, err := d.store.QuerySimilar(ctx, SimilarityQuery{
		ContentHash:   candidate.ContentHash,
		Title:         title,
		TitleShingles: candidate.TitleShingles,
		BodyShingles:  candidate.BodyShingles,
		Topic:         topic,
		Since:         time.Now().UTC().Add(-d.opts.RecencyWindow),
	})
	if err != nil {
		return Verdict{}, err
	}
	if match == nil {
		return Verdict{Reason: ReasonNone}, nil
	}

	fp := match.Fingerprint
	switch {
	case match.Exact:
		return Verdict{IsDuplicate: true, Matched: &fp, Similarity: 1.0, Reason: ReasonExact}, nil
	case match.TitleSimilarity >= d.opts.TitleThreshold:
		return Verdict{IsDuplicate: true, Matched: &fp, Similarity: match.TitleSimilarity, Reason: ReasonTitle}, nil
	case match.BodySimilarity >= d.opts.BodyThreshold:
		return Verdict{IsDuplicate: true, Matched: &fp, Similarity: match.BodySimilarity, Reason: ReasonBody}, nil
	}
	return Verdict{Similarity: match.Score(), Reason: ReasonNone}, nil
}

// ScoreMatch computes the per-metric similarities between a query and one
// stored fingerprint. Store implementations use it so that rankings agree
// regardless of backing medium. Title similarity only counts against
// fingerprints recorded for the same topic; exact and body similarity apply
// across topics.
func ScoreMatch(q SimilarityQuery, fp core.ContentFingerprint) Match {
	m := Match{
		Fingerprint:    fp,
		Exact:          q.ContentHash != "" && q.ContentHash == fp.ContentHash,
		BodySimilarity: Jaccard(q.BodyShingles, fp.BodyShingles),
	}
	if strings.EqualFold(q.Topic, fp.SourceTopic) {
		m.TitleSimilarity = TitleRatio(q.Title, fp.Title)
	}
	return m
}

// stopWords are dropped during normalization so similarity compares content
// words rather than connective tissue.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "up": {}, "about": {}, "into": {}, "through": {}, "during": {},
	"before": {}, "after": {}, "above": {}, "below": {}, "under": {},
	"between": {}, "among": {}, "throughout": {}, "within": {}, "without": {},
	"toward": {}, "towards": {}, "until": {}, "unless": {}, "since": {},
	"while": {}, "because": {}, "although": {}, "though": {}, "if": {},
	"whether": {}, "when": {}, "where": {}, "who": {}, "whom": {}, "whose": {},
	"which": {}, "what": {}, "how": {}, "why": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "i": {}, "you": {}, "he": {}, "she": {},
	"it": {}, "we": {}, "they": {}, "me": {}, "him": {}, "her": {}, "us": {},
	"them": {}, "my": {}, "your": {}, "his": {}, "its": {}, "our": {},
	"their": {},
}

var (
	markdownNoise = regexp.MustCompile(`[#*\[\]()]`)
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	punctuation   = regexp.MustCompile(`[^\w\s]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases, strips markdown noise, URLs and punctuation,
// collapses whitespace, and drops stop words and tokens shorter than three
// characters.
func NormalizeText(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = markdownNoise.ReplaceAllString(text, "")
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; stop || len(w) <= 2 {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// HashText returns the hex SHA-256 digest of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Shingles returns the set of contiguous k-token sequences of text, in first
// occurrence order. Text shorter than k tokens yields a single shingle of
// the whole text so tiny titles still compare.
func Shingles(text string, k int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if len(words) < k {
		return []string{strings.Join(words, " ")}
	}

	seen := make(map[string]struct{}, len(words))
	var shingles []string
	for i := 0; i+k <= len(words); i++ {
		s := strings.Join(words[i:i+k], " ")
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		shingles = append(shingles, s)
	}
	return shingles
}

// Jaccard computes |a ∩ b| / |a ∪ b| over two shingle sets.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	intersection := 0
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := setB[s]; dup {
			continue
		}
		setB[s] = struct{}{}
		if _, ok := setA[s]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TitleRatio computes a normalized edit-distance similarity between two
// titles, case-insensitive, in [0,1].
func TitleRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
