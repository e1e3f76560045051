package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s for comparison: diacritics removed, lower-cased,
// surrounding and repeated whitespace collapsed.
func Normalize(s string) string {
	// transform.Chain keeps state, so it is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// StripQualifier removes a parenthetical qualifier such as the region in
// "Mango (Savanes)" and normalizes the rest.
func StripQualifier(s string) string {
	if i := strings.IndexByte(s, '('); i > 0 {
		s = s[:i]
	}
	return Normalize(s)
}
