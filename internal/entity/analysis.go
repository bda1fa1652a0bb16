package entity

import "github.com/tenkanalyzer/tenk-analyzer/constants"

// AnalysisResult is the structured summary of one filing. All four fields are
// always present, possibly empty, never nil, regardless of what the model
// returned.
type AnalysisResult struct {
	KeyFinancialMetrics  []string `json:"key_financial_metrics"`
	RisksAndChallenges   []string `json:"risks_and_challenges"`
	StrategicInitiatives []string `json:"strategic_initiatives"`
	SignificantChanges   []string `json:"significant_changes"`
}

// NewAnalysisResult returns a result with all four fields initialized empty.
func NewAnalysisResult() AnalysisResult {
	return AnalysisResult{
		KeyFinancialMetrics:  []string{},
		RisksAndChallenges:   []string{},
		StrategicInitiatives: []string{},
		SignificantChanges:   []string{},
	}
}

// Normalize replaces nil fields with empty slices so every serialization
// carries all four keys as arrays.
func (r *AnalysisResult) Normalize() {
	if r.KeyFinancialMetrics == nil {
		r.KeyFinancialMetrics = []string{}
	}
	if r.RisksAndChallenges == nil {
		r.RisksAndChallenges = []string{}
	}
	if r.StrategicInitiatives == nil {
		r.StrategicInitiatives = []string{}
	}
	if r.SignificantChanges == nil {
		r.SignificantChanges = []string{}
	}
}

// Items returns the item list for a category.
func (r *AnalysisResult) Items(c constants.Category) []string {
	switch c {
	case constants.KeyFinancialMetrics:
		return r.KeyFinancialMetrics
	case constants.RisksAndChallenges:
		return r.RisksAndChallenges
	case constants.StrategicInitiatives:
		return r.StrategicInitiatives
	case constants.SignificantChanges:
		return r.SignificantChanges
	}
	return nil
}

// SetItems replaces the item list for a category.
func (r *AnalysisResult) SetItems(c constants.Category, items []string) {
	if items == nil {
		items = []string{}
	}
	switch c {
	case constants.KeyFinancialMetrics:
		r.KeyFinancialMetrics = items
	case constants.RisksAndChallenges:
		r.RisksAndChallenges = items
	case constants.StrategicInitiatives:
		r.StrategicInitiatives = items
	case constants.SignificantChanges:
		r.SignificantChanges = items
	}
}

// IsEmpty reports whether every category is empty.
func (r *AnalysisResult) IsEmpty() bool {
	for _, c := range constants.Categories() {
		if len(r.Items(c)) > 0 {
			return false
		}
	}
	return true
}

// ItemCount returns the total number of items across all categories.
func (r *AnalysisResult) ItemCount() int {
	n := 0
	for _, c := range constants.Categories() {
		n += len(r.Items(c))
	}
	return n
}
