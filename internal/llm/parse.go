package llm

import (
	"encoding/json"
	"log/slog"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
	"github.com/tenkanalyzer/tenk-analyzer/internal/common"
	"github.com/tenkanalyzer/tenk-analyzer/internal/entity"
)

// Parse turns a raw completion into the four-category result. Strict JSON
// decoding is tried first; on failure the section-marker scan salvages what
// it can. Only when neither tier finds a single category does Parse give up,
// so an all-empty result always means the model reported nothing, never that
// the response was misread.
func Parse(raw string, logger *slog.Logger) (entity.AnalysisResult, ParseOutcome, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if res, ok := parseStrict(raw, logger); ok {
		return res, StrictlyParsed, nil
	}

	if sections, ok := RecoverSections(raw); ok {
		res := entity.NewAnalysisResult()
		for cat, items := range sections {
			res.SetItems(cat, items)
		}
		logger.Warn("llm.parse.lenient", "raw_chars", len(raw),
			"items", res.ItemCount(), "categories", categoriesFound(res))
		return res, LenientlyRecovered, nil
	}

	// Keep the raw completion in the log; without it a malformed answer is
	// undiagnosable.
	logger.Error("llm.parse.malformed", "raw", raw)
	return entity.NewAnalysisResult(), Unrecoverable,
		common.MalformedResponse("no recognizable category in model response", nil)
}

// parseStrict attempts the JSON tier: strip code fences, decode, normalize
// key variants, validate against the schema. A decoded object that contains
// none of the four categories does not count as an analysis.
func parseStrict(raw string, logger *slog.Logger) (entity.AnalysisResult, bool) {
	content := StripCodeFences(raw)

	candidates := []string{content}
	if obj, ok := ExtractJSONObject(content); ok && obj != content {
		candidates = append(candidates, obj)
	}

	for _, candidate := range candidates {
		normalized, _, known, err := NormalizeAnalysisJSON([]byte(candidate), logger)
		if err != nil || !known {
			continue
		}
		if err := ValidateAnalysisJSON(normalized); err != nil {
			logger.Warn("llm.parse.schema_invalid", "error", err)
			continue
		}
		var res entity.AnalysisResult
		if err := json.Unmarshal(normalized, &res); err != nil {
			continue
		}
		res.Normalize()
		return res, true
	}
	return entity.AnalysisResult{}, false
}

// categoriesFound reports which categories carry at least one item, for logs.
func categoriesFound(res entity.AnalysisResult) []string {
	var found []string
	for _, cat := range constants.Categories() {
		if len(res.Items(cat)) > 0 {
			found = append(found, string(cat))
		}
	}
	return found
}
