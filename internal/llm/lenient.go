package llm

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
)

// Section-marker recovery for completions that failed strict decoding. The
// model usually still names the four categories even when it ignores the
// pure-JSON instruction, so we scan for those names and collect the list
// items that follow each one.

var markerPatterns = buildMarkerPatterns()

// buildMarkerPatterns compiles one case-insensitive pattern per category.
// Words may be separated by spaces, underscores or hyphens, "and" may appear
// as "&", and the name may carry quote, asterisk or heading decorations plus
// an optional trailing colon.
func buildMarkerPatterns() map[constants.Category]*regexp.Regexp {
	out := make(map[constants.Category]*regexp.Regexp, len(constants.Categories()))
	for _, cat := range constants.Categories() {
		words := strings.Split(string(cat), "_")
		for i, w := range words {
			if w == "and" {
				words[i] = `(?:and|&)`
			} else {
				words[i] = regexp.QuoteMeta(w)
			}
		}
		pat := `(?i)["'*#]*` + strings.Join(words, `[\s_\-]+`) + `["'*\s]*:?["'*]*`
		out[cat] = regexp.MustCompile(pat)
	}
	return out
}

type sectionMarker struct {
	cat   constants.Category
	start int
	end   int // offset just past the marker and its trailing punctuation
}

// RecoverSections scans a raw completion for category-name markers and
// gathers the items between each marker and the next. The bool result is
// false when no marker was found at all, which is the caller's cue that the
// completion is unrecoverable.
func RecoverSections(raw string) (map[constants.Category][]string, bool) {
	var markers []sectionMarker
	for _, cat := range constants.Categories() {
		for _, loc := range markerPatterns[cat].FindAllStringIndex(raw, -1) {
			markers = append(markers, sectionMarker{cat: cat, start: loc[0], end: loc[1]})
		}
	}
	if len(markers) == 0 {
		return nil, false
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].start < markers[j].start })

	sections := make(map[constants.Category][]string, len(markers))
	for i, m := range markers {
		end := len(raw)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		items := collectItems(raw[m.end:end])
		sections[m.cat] = append(sections[m.cat], items...)
	}
	return sections, true
}

// collectItems extracts list items from the text following one marker. A
// leading JSON array is decoded as-is when well formed; otherwise each line
// is treated as one item and cleaned of bullet markup.
func collectItems(section string) []string {
	if items, ok := decodeInlineArray(section); ok {
		return items
	}

	var items []string
	for _, line := range strings.Split(section, "\n") {
		if item := CleanItem(line); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// decodeInlineArray handles sections shaped like `["a", "b"],` where the
// surrounding JSON was broken but this fragment is intact.
func decodeInlineArray(section string) ([]string, bool) {
	open := strings.IndexByte(section, '[')
	if open < 0 || hasContent(section[:open]) {
		return nil, false
	}
	end := strings.LastIndexByte(section, ']')
	if end <= open {
		return nil, false
	}
	var raw []any
	if err := json.Unmarshal([]byte(section[open:end+1]), &raw); err != nil {
		return nil, false
	}
	items := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			if c := CleanItem(s); c != "" {
				items = append(items, c)
			}
		}
	}
	return items, true
}
