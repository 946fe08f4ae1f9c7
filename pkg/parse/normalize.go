package parse

import (
	"strings"
	"unicode"
)

// NormalizeText prepares raw input for decoding: strips a leading byte-order
// mark, removes invisible format characters (zero-width spaces/joiners,
// direction marks, soft hyphens) everywhere outside string literals, and
// trims surrounding whitespace. Characters inside string literals are left
// alone, they may be legitimate data.
func NormalizeText(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")

	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if inString {
			b.WriteRune(r)
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		if isInvisible(r) {
			continue
		}
		if r == '"' {
			inString = true
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// isInvisible reports whether r is a zero-width or otherwise invisible
// format character. Unicode category Cf covers zero-width space/joiners,
// direction marks, soft hyphen and the BOM.
func isInvisible(r rune) bool {
	return unicode.Is(unicode.Cf, r)
}
