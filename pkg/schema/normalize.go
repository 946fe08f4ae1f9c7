package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeFieldName canonicalizes a field name for fuzzy comparison.
//
// NFKC compatibility normalization collapses full-width alphanumerics,
// parentheses, colons and spaces to their half-width forms; invisible format
// characters (category Cf: zero-width spaces/joiners, direction marks, soft
// hyphen, BOM) are removed; whitespace runs collapse to a single space and
// the result is trimmed. The function is idempotent.
func NormalizeFieldName(name string) string {
	t := transform.Chain(norm.NFKC, runes.Remove(runes.In(unicode.Cf)))
	out, _, err := transform.String(t, name)
	if err != nil {
		// transform failures leave the input usable as-is
		out = name
	}
	return strings.Join(strings.Fields(out), " ")
}
