package extract

import "strings"

// NormalizePage collapses all whitespace runs within one page's text into
// single spaces. Page boundaries are re-inserted by the caller, so the page
// separator never collides with intra-page whitespace.
func NormalizePage(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
