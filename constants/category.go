package constants

import "strings"

// Category is one of the four fixed analysis dimensions of a filing report.
type Category string

const (
	KeyFinancialMetrics  Category = "key_financial_metrics"
	RisksAndChallenges   Category = "risks_and_challenges"
	StrategicInitiatives Category = "strategic_initiatives"
	SignificantChanges   Category = "significant_changes"
)

var allCategories = []Category{
	KeyFinancialMetrics,
	RisksAndChallenges,
	StrategicInitiatives,
	SignificantChanges,
}

// Categories returns the four dimensions in report order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// CategoryKeys returns the JSON keys in report order.
func CategoryKeys() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Title returns the human-readable heading for a category.
func (c Category) Title() string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w == "and" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Canonicalize maps a loosely written category name onto its canonical form.
// Case, spaces, hyphens, and underscores are ignored, so "Key Financial
// Metrics" and "key-financial-metrics" both resolve to KeyFinancialMetrics.
func Canonicalize(input string) (Category, bool) {
	normalized := foldCategoryName(input)
	if normalized == "" {
		return "", false
	}
	for _, cat := range allCategories {
		if normalized == foldCategoryName(string(cat)) {
			return cat, true
		}
	}
	return "", false
}

func foldCategoryName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
