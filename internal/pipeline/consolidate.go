package pipeline

import (
	"sort"
	"strings"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
)

// Consolidate merges per-chunk results into one. Per category: concatenate in
// chunk order, drop duplicates (first occurrence wins, compared
// case-insensitively after trimming), keep the most concise insights by
// sorting on length, and cap the list at maxItems.
func Consolidate(results []entity.AnalysisResult, maxItems int) entity.AnalysisResult {
	if maxItems <= 0 {
		maxItems = 10
	}

	out := entity.NewAnalysisResult()
	for _, cat := range constants.Categories() {
		seen := make(map[string]struct{})
		var merged []string
		for _, res := range results {
			for _, item := range res.Items(cat) {
				key := strings.ToLower(strings.TrimSpace(item))
				if key == "" {
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				merged = append(merged, strings.TrimSpace(item))
			}
		}
		sort.SliceStable(merged, func(i, j int) bool { return len(merged[i]) < len(merged[j]) })
		if len(merged) > maxItems {
			merged = merged[:maxItems]
		}
		out.SetItems(cat, merged)
	}
	return out
}
