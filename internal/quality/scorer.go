// Package quality scores article candidates on readability, SEO, engagement
// and structural quality. Scoring is a pure function of text and title: no
// side effects, no network calls, identical inputs yield identical scores.
package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"blogsmith/internal/core"
)

// ValidationError reports text that cannot be scored at all (empty or under
// the absolute minimum word count). It is checked before any sub-score.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("content validation failed: %s", e.Reason)
}

// Weights controls the composite score. They should sum to 1.0.
type Weights struct {
	Readability float64 `mapstructure:"readability"`
	SEO         float64 `mapstructure:"seo"`
	Engagement  float64 `mapstructure:"engagement"`
	Technical   float64 `mapstructure:"technical"`
}

// Options configures the scorer.
type Options struct {
	MinWordCount    int     // Below this, scoring fails with ValidationError
	MaxWordCount    int     // Above this, length score degrades
	TargetWordCount int     // Sweet spot for the length score
	Weights         Weights // Sub-score weights for the composite
}

// DefaultOptions returns the default scoring configuration.
func DefaultOptions() Options {
	return Options{
		MinWordCount:    300,
		MaxWordCount:    2000,
		TargetWordCount: 800,
		Weights: Weights{
			Readability: 0.25,
			SEO:         0.30,
			Engagement:  0.25,
			Technical:   0.20,
		},
	}
}

// Scorer performs content quality analysis.
type Scorer struct {
	opts Options
}

// NewScorer creates a scorer with the given options.
func NewScorer(opts Options) *Scorer {
	return &Scorer{opts: opts}
}

// NewScorerWithDefaults creates a scorer with default options.
func NewScorerWithDefaults() *Scorer {
	return NewScorer(DefaultOptions())
}

// Score computes the composite quality score and recommendations for the
// given text and title.
func (s *Scorer) Score(text, title string) (core.QualityScore, error) {
	if strings.TrimSpace(text) == "" {
		return core.QualityScore{}, &ValidationError{Reason: "text is empty"}
	}
	wordCount := len(strings.Fields(text))
	if wordCount < s.opts.MinWordCount {
		return core.QualityScore{}, &ValidationError{
			Reason: fmt.Sprintf("text too short: %d words (minimum %d)", wordCount, s.opts.MinWordCount),
		}
	}

	readability := s.analyzeReadability(text)
	seo := s.analyzeSEO(text, title)
	engagement := s.analyzeEngagement(text)
	technical := s.analyzeTechnical(text)

	w := s.opts.Weights
	overall := readability*w.Readability + seo*w.SEO + engagement*w.Engagement + technical*w.Technical

	return core.QualityScore{
		Overall:         round1(overall),
		Readability:     round1(readability),
		SEO:             round1(seo),
		Engagement:      round1(engagement),
		Technical:       round1(technical),
		Recommendations: s.recommendations(text, title, readability, engagement),
	}, nil
}

var (
	markdownChars = regexp.MustCompile(`[#*\[\]()]`)
	sentenceEnds  = regexp.MustCompile(`[.!?]+`)
	headerLine    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	bulletItem    = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedItem  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	boldText      = regexp.MustCompile(`\*\*[^*]+\*\*`)
	italicText    = regexp.MustCompile(`\*[^*]+\*`)
	inlineCode    = regexp.MustCompile("`[^`]+`")
	markdownLink  = regexp.MustCompile(`\[.+\]\(.+\)`)
)

// ctaPatterns match common call-to-action phrasing.
var ctaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(learn more|read more|find out|discover|explore)\b`),
	regexp.MustCompile(`(?i)\b(try|start|begin|get started)\b`),
	regexp.MustCompile(`(?i)\b(download|subscribe|follow|share)\b`),
}

// analyzeReadability computes a Flesch reading-ease score, clamped to 0-100.
func (s *Scorer) analyzeReadability(text string) float64 {
	clean := markdownChars.ReplaceAllString(text, "")
	words := strings.Fields(clean)
	sentences := splitSentences(clean)
	if len(words) == 0 || len(sentences) == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	avgSentenceLength := float64(len(words)) / float64(len(sentences))
	avgSyllablesPerWord := float64(syllables) / float64(len(words))

	flesch := 206.835 - 1.015*avgSentenceLength - 84.6*avgSyllablesPerWord
	return clamp(flesch, 0, 100)
}

// analyzeSEO averages title length, content length, header structure and
// keyword density factors.
func (s *Scorer) analyzeSEO(text, title string) float64 {
	titleScore := s.titleScore(len(title))
	lengthScore := s.lengthScore(len(strings.Fields(text)))
	headerScore := math.Min(100, float64(len(headerLine.FindAllString(text, -1)))*20)
	densityScore := s.densityScore(text)

	return (titleScore + lengthScore + headerScore + densityScore) / 4
}

// titleScore rewards titles between 30 and 60 characters.
func (s *Scorer) titleScore(length int) float64 {
	if length >= 30 && length <= 60 {
		return 100
	}
	return math.Max(0, 100-math.Abs(float64(length)-45)*2)
}

// lengthScore rewards word counts near the target.
func (s *Scorer) lengthScore(wordCount int) float64 {
	distance := math.Abs(float64(wordCount - s.opts.TargetWordCount))
	if wordCount >= s.opts.MinWordCount && wordCount <= s.opts.MaxWordCount {
		return 100 - distance/10
	}
	return math.Max(0, 50-distance/20)
}

// densityScore penalizes a single keyword dominating the body.
func (s *Scorer) densityScore(text string) float64 {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return 0
	}

	freq := make(map[string]int)
	maxFreq := 0
	for _, w := range words {
		freq[w]++
		if freq[w] > maxFreq {
			maxFreq = freq[w]
		}
	}

	density := float64(maxFreq) / float64(len(words)) * 100
	switch {
	case density < 3:
		return 100
	case density < 5:
		return 80
	default:
		return math.Max(0, 100-(density-5)*10)
	}
}

// analyzeEngagement averages question, list and call-to-action factors.
func (s *Scorer) analyzeEngagement(text string) float64 {
	questions := strings.Count(text, "?")
	questionScore := math.Min(100, float64(questions)*15)

	listItems := len(bulletItem.FindAllString(text, -1)) + len(numberedItem.FindAllString(text, -1))
	listScore := math.Min(100, float64(listItems)*10)

	ctaCount := 0
	for _, p := range ctaPatterns {
		ctaCount += len(p.FindAllString(text, -1))
	}
	ctaScore := math.Min(100, float64(ctaCount)*25)

	return (questionScore + listScore + ctaScore) / 3
}

// analyzeTechnical averages markdown formatting and paragraph structure
// factors.
func (s *Scorer) analyzeTechnical(text string) float64 {
	formatting := 0.0
	for _, p := range []*regexp.Regexp{headerLine, boldText, italicText, inlineCode, markdownLink} {
		if p.MatchString(text) {
			formatting += 20
		}
	}

	var structure float64
	switch paragraphs := meaningfulParagraphs(text); {
	case paragraphs >= 3:
		structure = 100
	case paragraphs >= 2:
		structure = 75
	default:
		structure = 50
	}

	return (formatting + structure) / 2
}

// recommendations produces threshold-driven improvement hints.
func (s *Scorer) recommendations(text, title string, readability, engagement float64) []string {
	var recs []string

	if readability < 60 {
		recs = append(recs, "Improve readability by shortening sentences and using simpler words")
	}

	switch titleLen := len(title); {
	case titleLen < 30:
		recs = append(recs, "Lengthen title to 30-60 characters for better SEO")
	case titleLen > 60:
		recs = append(recs, "Shorten title to under 60 characters for better SEO")
	}

	switch wordCount := len(strings.Fields(text)); {
	case wordCount < s.opts.MinWordCount:
		recs = append(recs, fmt.Sprintf("Increase content length to at least %d words", s.opts.MinWordCount))
	case wordCount > s.opts.MaxWordCount:
		recs = append(recs, fmt.Sprintf("Consider shortening content to under %d words", s.opts.MaxWordCount))
	}

	if len(headerLine.FindAllString(text, -1)) < 3 {
		recs = append(recs, "Add more headers (H2, H3) to improve content structure")
	}

	if strings.Count(text, "?") == 0 {
		recs = append(recs, "Add questions to increase reader engagement")
	}

	if listItems := len(bulletItem.FindAllString(text, -1)) + len(numberedItem.FindAllString(text, -1)); listItems < 3 {
		recs = append(recs, "Add bullet points or numbered lists to improve readability")
	}

	if meaningfulParagraphs(text) < 3 {
		recs = append(recs, "Break content into more paragraphs for better structure")
	}

	return recs
}

// splitSentences splits on sentence-ending punctuation.
func splitSentences(text string) []string {
	parts := sentenceEnds.Split(text, -1)
	var sentences []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, strings.TrimSpace(p))
		}
	}
	return sentences
}

// countSyllables estimates syllables by counting vowel groups, with a silent
// trailing 'e' adjustment. Always at least 1.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// meaningfulParagraphs counts paragraphs with more than 50 characters.
func meaningfulParagraphs(text string) int {
	count := 0
	for _, p := range strings.Split(text, "\n\n") {
		if len(strings.TrimSpace(p)) > 50 {
			count++
		}
	}
	return count
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
