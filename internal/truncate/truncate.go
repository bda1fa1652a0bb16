// Package truncate bounds extracted text to a model input budget, cutting on
// whitespace boundaries so the final salvageable sentence is never corrupted
// by a mid-word cut.
package truncate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Text bounds s to at most maxLen bytes. Below the budget s is returned
// unchanged. Above it, the cut falls on the last whitespace at or before
// index maxLen; when that range holds no whitespace at all the cut is at
// exactly maxLen, backed off only as far as needed to keep the final rune
// intact. The boolean reports whether content was discarded.
func Text(s string, maxLen int) (string, bool) {
	if maxLen <= 0 {
		return "", s != ""
	}
	if len(s) <= maxLen {
		return s, false
	}
	window := s[:maxLen+1]
	idx := strings.LastIndexFunc(window, unicode.IsSpace)
	if idx < 0 {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut], true
	}
	return strings.TrimRightFunc(s[:idx], unicode.IsSpace), true
}

// Chunks splits s into consecutive budget-sized pieces on the same
// whitespace-boundary rule as Text, returning at most maxChunks pieces.
// The boolean reports whether trailing content was discarded because the
// chunk limit was reached.
func Chunks(s string, maxLen, maxChunks int) ([]string, bool) {
	if maxLen <= 0 {
		return nil, strings.TrimSpace(s) != ""
	}
	if maxChunks < 1 {
		maxChunks = 1
	}

	var chunks []string
	rest := strings.TrimLeftFunc(s, unicode.IsSpace)
	for rest != "" {
		if len(chunks) == maxChunks {
			return chunks, true
		}
		head, cut := Text(rest, maxLen)
		if !cut {
			chunks = append(chunks, rest)
			break
		}
		if head == "" {
			break
		}
		chunks = append(chunks, head)
		rest = strings.TrimLeftFunc(rest[len(head):], unicode.IsSpace)
	}
	return chunks, false
}
