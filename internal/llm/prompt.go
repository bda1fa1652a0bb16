package llm

import (
	"strings"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
)

// BuildPrompt renders the prompt for one bounded filing excerpt. The build is
// deterministic: no clocks, no randomness, no environment reads. Determinism
// keeps completions comparable across runs of the same filing.
func BuildPrompt(boundedText string) Prompt {
	return Prompt{
		System: BuildSystemPrompt(),
		User:   boundedText,
	}
}

// BuildSystemPrompt composes the analyst instructions. The category keys in
// the structure line come from constants so the prompt and the parser can
// never disagree on spelling.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a concise financial analyst expert.",
		"Analyze the 10-K filing excerpt provided by the user and report the MOST critical insights in pure JSON (do not wrap it in markdown code blocks).",
		"Use this exact structure: " + emptyStructureJSON(),
		"Be extremely selective and concise: each array should contain only 3-5 of the MOST important points as strings.",
		"Focus on high-level, material insights that would be most relevant to investors.",
		"Each point should be a single sentence.",
		"Do not include any markdown formatting or code blocks in your response.",
	}
	return strings.Join(parts, "\n")
}

// emptyStructureJSON renders the expected response skeleton with the category
// keys in canonical order.
func emptyStructureJSON() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range constants.CategoryKeys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		b.WriteString(key)
		b.WriteString(`": []`)
	}
	b.WriteByte('}')
	return b.String()
}
