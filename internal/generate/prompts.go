package generate

import (
	"fmt"
	"strings"
	"time"

	"blogsmith/internal/core"
)

// sourceBreak separates combined source documents inside a prompt.
const sourceBreak = "\n\n---SOURCE BREAK---\n\n"

// PromptStrategy is one rung of the ladder: a pure prompt builder plus the
// backend timeout for attempts made with it. Stricter strategies get longer
// timeouts since they demand longer output.
type PromptStrategy struct {
	Name    core.Strategy
	Timeout time.Duration
	Build   func(topic string, sources []core.SourceDocument) string
}

// Ladder returns the strategy ladder in escalation order: structured,
// detailed, standard, minimal. Traversal is strictly forward.
func Ladder() []PromptStrategy {
	return []PromptStrategy{
		{Name: core.StrategyStructured, Timeout: 15 * time.Minute, Build: buildStructuredPrompt},
		{Name: core.StrategyDetailed, Timeout: 10 * time.Minute, Build: buildDetailedPrompt},
		{Name: core.StrategyStandard, Timeout: 450 * time.Second, Build: buildStandardPrompt},
		{Name: core.StrategyMinimal, Timeout: 5 * time.Minute, Build: buildMinimalPrompt},
	}
}

// buildStructuredPrompt demands a full outline with per-section word budgets.
func buildStructuredPrompt(topic string, sources []core.SourceDocument) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("You are an expert academic writer creating an original blog post about %q. ", topic))
	b.WriteString("Thoroughly rephrase and expand the source material using original language while maintaining factual accuracy. Include proper source attribution for all borrowed concepts.\n\n")

	b.WriteString("**CRITICAL REQUIREMENTS:**\n")
	b.WriteString("- Original rephrasing: rewrite ALL content in fresh language (0% direct quotes)\n")
	b.WriteString("- Length: 1200-1500 words (strict minimum 1000)\n")
	b.WriteString("- Citations: attribute every borrowed concept\n")
	b.WriteString("- Depth: add 3+ original insights beyond the source material\n")
	b.WriteString("- Tone: engaging academic style with journalistic flair\n")
	b.WriteString("- Formatting: full Markdown (## H2, ### H3, bullet lists, bold key terms)\n\n")

	b.WriteString("**STRUCTURE:**\n")
	b.WriteString(fmt.Sprintf("## Comprehensive Introduction: Understanding %s\n", topic))
	b.WriteString("[200+ words: current significance + historical context + thesis statement + article roadmap]\n\n")
	b.WriteString("### Core Principle 1: [Key Aspect Name]\n")
	b.WriteString("[150+ words: detailed explanation + 1 analogy + 1 statistical example]\n\n")
	b.WriteString("### Core Principle 2: [Important Detail Name]\n")
	b.WriteString("[150+ words: cause-effect analysis + contrasting viewpoints + case study]\n\n")
	b.WriteString("### Practical Implementation: Real-World Applications\n")
	b.WriteString("[150+ words: industry use cases, step-by-step framework, one \"Pro Tip:\" with actionable advice]\n\n")
	b.WriteString("### Emerging Trends and Future Evolution\n")
	b.WriteString("[150+ words: current innovations, predicted developments, one \"Original Insight:\" projection]\n\n")
	b.WriteString("## Conclusion: Key Takeaways and Forward Perspective\n")
	b.WriteString("[150+ words: synthesized findings + one \"Consider This:\" critical question]\n\n")
	b.WriteString("## References\n")
	b.WriteString("[Numbered citations covering ALL referenced concepts]\n\n")

	b.WriteString("**SOURCE MATERIAL:**\n")
	b.WriteString(combineSources(sources, 3, 8000))
	b.WriteString("\n\n")

	b.WriteString("**WRITING PROTOCOL:**\n")
	b.WriteString("1. Analyze sources and extract core concepts only\n")
	b.WriteString("2. Rephrase with synonym substitution, sentence restructuring, and perspective shifts\n")
	b.WriteString("3. Expand with current industry applications and cross-disciplinary connections\n")
	b.WriteString("4. Cite every borrowed concept in the references\n")
	b.WriteString("5. Include 2 \"Expert Insight:\" commentary boxes and 1 debate point with counterarguments\n\n")
	b.WriteString("Begin writing:")

	return b.String()
}

// buildDetailedPrompt keeps the outline but loosens the per-section budgets.
func buildDetailedPrompt(topic string, sources []core.SourceDocument) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Create an original, rephrased blog article about %q using the provided source material. ", topic))
	b.WriteString("Rewrite all content in your own words while preserving key information. Include proper source citations.\n\n")

	b.WriteString("**REQUIREMENTS:**\n")
	b.WriteString("- 800-1200 words (strict minimum)\n")
	b.WriteString("- Deep analysis with unique insights\n")
	b.WriteString("- 100% original phrasing (no direct quotes)\n")
	b.WriteString("- Include 3+ specific examples or case studies\n")
	b.WriteString("- Academic/professional tone\n")
	b.WriteString("- Markdown formatting with H2/H3 headers\n")
	b.WriteString("- Clear source citations in references\n\n")

	b.WriteString("**STRUCTURE:**\n")
	b.WriteString("## Comprehensive Overview\n")
	b.WriteString("## Critical Analysis of Key Concepts (3-4 H3 subsections)\n")
	b.WriteString("## Evidence and Case Studies (at least one statistic, one real-world application, one precedent)\n")
	b.WriteString("## Implications and Future Impact\n")
	b.WriteString("## Conclusion\n")
	b.WriteString("## References (cover ALL borrowed concepts)\n\n")

	b.WriteString("**SOURCE MATERIAL:**\n")
	b.WriteString(combineSources(sources, 2, 8000))
	b.WriteString("\n\n")

	b.WriteString("**PROCESS:**\n")
	b.WriteString("1. Thoroughly analyze the source material\n")
	b.WriteString("2. Extract core ideas only (no verbatim text)\n")
	b.WriteString("3. Develop original structure and phrasing\n")
	b.WriteString("4. Add new insights beyond the source content\n")
	b.WriteString("5. Verify word count before finalizing\n\n")
	b.WriteString("Begin writing:")

	return b.String()
}

// buildStandardPrompt carries only the essential constraints.
func buildStandardPrompt(topic string, sources []core.SourceDocument) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Create an original blog post about %q by thoroughly rephrasing and synthesizing the provided source material. ", topic))
	b.WriteString("Ensure 100% original wording while maintaining factual accuracy through proper citations.\n\n")

	b.WriteString("**REQUIREMENTS:**\n")
	b.WriteString("- Rewrite all concepts in fresh language (no direct quotes)\n")
	b.WriteString("- Length: strict 600-800 words\n")
	b.WriteString("- Attribute all borrowed ideas in a references section\n")
	b.WriteString("- Clear logical flow with Markdown headers\n")
	b.WriteString("- Incorporate 1-2 original insights beyond the sources\n")
	b.WriteString("- Include rhetorical questions and actionable takeaways\n\n")

	b.WriteString("**STRUCTURE:**\n")
	b.WriteString(fmt.Sprintf("## Introduction: %s\n", topic))
	b.WriteString("### Core Concept Explanation\n")
	b.WriteString("### Evidence and Applications (3 concrete examples)\n")
	b.WriteString("### Practical Implications\n")
	b.WriteString("## Conclusion\n")
	b.WriteString("## References\n\n")

	b.WriteString("**SOURCE MATERIAL:**\n")
	b.WriteString(combineSources(sources, 2, 8000))
	b.WriteString("\n\n")

	b.WriteString("Include one \"Consider this:\" question and one \"Try this:\" action step.\n\n")
	b.WriteString("Begin writing:")

	return b.String()
}

// buildMinimalPrompt is the last resort: bare topic plus the first source.
func buildMinimalPrompt(topic string, sources []core.SourceDocument) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Create an original blog post about %q by thoroughly rephrasing the source material. ", topic))
	b.WriteString("Ensure 100% unique wording while maintaining factual accuracy and including proper source attribution.\n\n")

	b.WriteString("**REQUIREMENTS:**\n")
	b.WriteString("- Rewrite all content in fresh language (no direct quotes)\n")
	b.WriteString("- Length: strict 400-600 words\n")
	b.WriteString("- Clear 3-part flow with Markdown headers\n")
	b.WriteString("- Professional yet accessible tone\n")
	b.WriteString("- Prioritize key insights over minor details\n\n")

	b.WriteString("**STRUCTURE:**\n")
	b.WriteString(fmt.Sprintf("### Introduction: The Essentials of %s\n", topic))
	b.WriteString("### Key Insights Explained\n")
	b.WriteString("### Conclusion and Practical Takeaways\n")
	b.WriteString("### References\n\n")

	b.WriteString("**SOURCE MATERIAL:**\n")
	b.WriteString(minimalSource(sources))
	b.WriteString("\n\n")

	b.WriteString("Add one original insight not in the source material and one \"Consider this:\" question.\n\n")
	b.WriteString("Begin writing:")

	return b.String()
}

// combineSources joins up to maxSources documents with a break marker,
// truncating the combined text at maxChars.
func combineSources(sources []core.SourceDocument, maxSources, maxChars int) string {
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}

	texts := make([]string, 0, len(sources))
	for _, src := range sources {
		texts = append(texts, src.Text)
	}
	combined := strings.Join(texts, sourceBreak)

	if len(combined) > maxChars {
		return combined[:maxChars] + "\n[Content truncated...]"
	}
	return combined
}

// minimalSource keeps only the first source, capped at 2000 characters.
func minimalSource(sources []core.SourceDocument) string {
	if len(sources) == 0 {
		return ""
	}
	text := sources[0].Text
	if len(text) > 2000 {
		return text[:2000] + "..."
	}
	return text
}
