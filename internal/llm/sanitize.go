package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
)

// NormalizeAnalysisJSON reshapes a decoded completion object into the strict
// four-key form:
//   - Canonicalizes key variants ("Key Financial Metrics" -> key_financial_metrics)
//   - Coerces scalar values into one-item arrays and drops non-string items
//   - Removes unknown keys (strict additionalProperties = false friendliness)
//   - Defaults missing categories to empty arrays
//
// The bool result reports whether any of the four categories was present in
// the object at all; an object with zero known keys is not an analysis.
func NormalizeAnalysisJSON(raw []byte, logger *slog.Logger) ([]byte, []string, bool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, false, fmt.Errorf("normalize: decode: %w", err)
	}

	notes := make([]string, 0, 8)
	out := make(map[string]any, len(constants.CategoryKeys()))
	known := false

	// Sorted iteration keeps duplicate-key resolution stable.
	for _, k := range slices.Sorted(maps.Keys(m)) {
		cat, ok := constants.Canonicalize(k)
		if !ok {
			notes = append(notes, k+"(unknown)")
			continue
		}
		if _, exists := out[string(cat)]; exists {
			notes = append(notes, k+"(duplicate)")
			continue
		}
		known = true
		items, coerceNotes := coerceItems(k, m[k])
		notes = append(notes, coerceNotes...)
		out[string(cat)] = items
	}
	for _, key := range constants.CategoryKeys() {
		if _, ok := out[key]; !ok {
			out[key] = []string{}
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, notes, known, fmt.Errorf("normalize: encode: %w", err)
	}
	if len(notes) > 0 {
		logger.Warn("llm.parse.normalize", "notes", notes)
	}
	return b, notes, known, nil
}

// coerceItems turns whatever the model put under a category key into a clean
// []string. Scalars become one-item arrays; nulls and unusable types become
// empty arrays with a note.
func coerceItems(key string, v any) ([]string, []string) {
	switch t := v.(type) {
	case []any:
		items := make([]string, 0, len(t))
		var notes []string
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				notes = append(notes, fmt.Sprintf("%s(item %T)", key, e))
				continue
			}
			if c := CleanItem(s); c != "" {
				items = append(items, c)
			}
		}
		return items, notes
	case string:
		if c := CleanItem(t); c != "" {
			return []string{c}, []string{key + "(scalar)"}
		}
		return []string{}, []string{key + "(empty)"}
	case nil:
		return []string{}, []string{key + "(null)"}
	default:
		return []string{}, []string{fmt.Sprintf("%s(%T)", key, v)}
	}
}

// StripCodeFences removes a wrapping markdown code fence, with or without a
// language tag, from a completion. Models add them despite instructions.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	// Drop the opening fence line (``` or ```json).
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	} else {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
	}
	t = strings.TrimSpace(t)
	if i := strings.LastIndex(t, "```"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// ExtractJSONObject returns the substring spanning the first '{' through the
// last '}' so prose around an embedded object does not defeat decoding.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

var bulletPrefix = regexp.MustCompile(`^(?:[-\x{2013}\x{2014}\x{2022}\x{00b7}*>\[\]"']+\s*|\d{1,2}[.)]\s+)+`)

// CleanItem strips list markup from one insight: leading bullets or numbering,
// wrapping quotes and brackets, trailing separators. Lines with no letters or
// digits left are noise and clean to the empty string.
func CleanItem(s string) string {
	t := strings.TrimSpace(s)
	t = bulletPrefix.ReplaceAllString(t, "")
	t = strings.TrimRight(t, " \t,;:]*\"'")
	t = strings.TrimSpace(t)
	if !hasContent(t) {
		return ""
	}
	return t
}

func hasContent(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
}
