package generate

import (
	"fmt"
	"strings"
)

// qualityIndicators are phrases whose presence suggests substantive writing.
var qualityIndicators = []string{
	"introduction", "conclusion", "analysis", "overview", "summary",
	"furthermore", "however", "therefore", "moreover", "additionally",
	"according to", "research shows", "studies indicate", "reports suggest",
	"experts believe", "data reveals", "findings show", "evidence suggests",
	"technology", "innovation", "development", "advancement", "breakthrough",
	"industry", "market", "business", "economic", "financial", "growth",
}

// blacklistedTerms are refusal and meta markers that disqualify raw backend
// output outright.
var blacklistedTerms = []string{
	"i am an ai", "as an ai", "i cannot", "i'm unable to",
	"sorry, i can't", "content filtered", "inappropriate request",
	"safety filter", "against my programming", "i apologize, but",
}

// Validation is the structural check result for raw backend output. It gates
// advancement to quality scoring; a failed validation is retried like a
// backend error.
type Validation struct {
	Valid     bool     // Overall pass/fail
	Score     float64  // Aggregate of the component scores, 0-1
	Issues    []string // Human-readable failure reasons
	WordCount int      // Word count of the raw text
}

// ValidateContent checks raw output against length, safety, quality and
// structure standards.
func ValidateContent(content string, minWordCount int) Validation {
	var issues []string
	contentLower := strings.ToLower(content)

	wordCount := len(strings.Fields(content))
	lengthScore := calculateLengthScore(wordCount, minWordCount)
	if wordCount < minWordCount {
		issues = append(issues, fmt.Sprintf("content too short: %d words (min: %d)", wordCount, minWordCount))
	}

	safetyScore := 1.0
	for _, term := range blacklistedTerms {
		if strings.Contains(contentLower, term) {
			safetyScore = 0
			issues = append(issues, "blacklisted terms detected")
			break
		}
	}

	qualityScore := calculateIndicatorScore(contentLower)
	structureScore := calculateStructureScore(content, wordCount, minWordCount)

	overall := (lengthScore + safetyScore + qualityScore + structureScore) / 4

	return Validation{
		Valid:     len(issues) == 0 && overall > 0.6,
		Score:     overall,
		Issues:    issues,
		WordCount: wordCount,
	}
}

// calculateLengthScore rewards hitting 1.5x the minimum word count.
func calculateLengthScore(wordCount, minCount int) float64 {
	if minCount <= 0 {
		return 1
	}
	if wordCount < minCount {
		return float64(wordCount) / float64(minCount)
	}
	score := float64(wordCount) / (float64(minCount) * 1.5)
	if score > 1 {
		score = 1
	}
	return score
}

// calculateIndicatorScore rates the density of quality indicator phrases.
func calculateIndicatorScore(contentLower string) float64 {
	found := 0
	for _, indicator := range qualityIndicators {
		if strings.Contains(contentLower, indicator) {
			found++
		}
	}
	score := float64(found) / float64(len(qualityIndicators)) * 5
	if score > 1 {
		score = 1
	}
	return score
}

// calculateStructureScore rewards paragraph count, headers and length margin.
func calculateStructureScore(content string, wordCount, minCount int) float64 {
	paragraphs := 0
	for _, p := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}

	hasHeaders := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#") {
			hasHeaders = true
			break
		}
	}

	score := 0.0
	if paragraphs >= 3 {
		score += 0.4
	}
	if hasHeaders {
		score += 0.3
	}
	if float64(wordCount) > float64(minCount)*1.2 {
		score += 0.3
	}
	return score
}
