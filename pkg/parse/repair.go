package parse

import (
	"fmt"
	"strings"
)

// RepairQuotes escapes unescaped double quotes that appear inside string
// literals of near-valid JSON. Hand-written or pasted JSON commonly embeds
// quotes in natural-language values; telling a string terminator apart from
// an embedded quote requires looking ahead for a character that is
// structural in the current innermost container.
func RepairQuotes(src string) string {
	var out strings.Builder
	out.Grow(len(src) + 16)

	var stack []byte // open container kinds, '{' or '['
	inString := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		// Escape pairs inside strings pass through untouched
		if inString && c == '\\' && i+1 < len(src) {
			out.WriteByte(c)
			i++
			out.WriteByte(src[i])
			continue
		}

		if c == '"' {
			if !inString {
				inString = true
				out.WriteByte(c)
				continue
			}
			var container byte
			if len(stack) > 0 {
				container = stack[len(stack)-1]
			}
			if quoteTerminates(src, i+1, container) {
				inString = false
				out.WriteByte(c)
			} else {
				out.WriteString(`\"`)
			}
			continue
		}

		if !inString {
			switch c {
			case '{', '[':
				stack = append(stack, c)
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}

		out.WriteByte(c)
	}

	return out.String()
}

// quoteTerminates reports whether a quote at pos-1 closes its string
// literal, judged by the next significant character after pos
func quoteTerminates(src string, pos int, container byte) bool {
	j := skipSpace(src, pos)
	if j >= len(src) {
		return true
	}
	switch src[j] {
	case '}', ']', ':':
		return true
	case ',':
		k := skipSpace(src, j+1)
		switch container {
		case '{':
			// Inside an object a comma only follows a member, so the
			// tail must look like the next `"key":` pair
			return looksLikeKey(src, k)
		case '[':
			return looksLikeValue(src, k)
		}
		return false
	}
	return false
}

// looksLikeKey reports whether src at pos begins a quoted object key
// followed by a colon
func looksLikeKey(src string, pos int) bool {
	if pos >= len(src) || src[pos] != '"' {
		return false
	}
	for i := pos + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '"':
			j := skipSpace(src, i+1)
			return j < len(src) && src[j] == ':'
		}
	}
	return false
}

// looksLikeValue reports whether src at pos begins any valid JSON value
func looksLikeValue(src string, pos int) bool {
	if pos >= len(src) {
		return false
	}
	c := src[pos]
	switch {
	case c == '{' || c == '[':
		return true
	case c == '-' || (c >= '0' && c <= '9'):
		return true
	case strings.HasPrefix(src[pos:], "true"),
		strings.HasPrefix(src[pos:], "false"),
		strings.HasPrefix(src[pos:], "null"):
		return true
	case c == '"':
		return stringCloses(src, pos+1)
	}
	return false
}

// stringCloses reports whether the string opened just before pos reaches a
// quote whose own look-ahead is structural before the text runs out
func stringCloses(src string, pos int) bool {
	for i := pos; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '"':
			j := skipSpace(src, i+1)
			if j >= len(src) {
				return true
			}
			switch src[j] {
			case ',', ']', '}', ':':
				return true
			}
			// embedded quote, keep scanning
		}
	}
	return false
}

func skipSpace(src string, pos int) int {
	for pos < len(src) {
		switch src[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// EscapeControlChars escapes raw C0 control characters found inside string
// literals. Run this only on text whose strings are already correctly
// terminated (i.e. after RepairQuotes), the in-string tracking here is a
// plain toggle.
func EscapeControlChars(src string) string {
	var out strings.Builder
	out.Grow(len(src) + 16)

	inString := false
	for i := 0; i < len(src); i++ {
		c := src[i]

		if inString && c == '\\' && i+1 < len(src) {
			out.WriteByte(c)
			i++
			out.WriteByte(src[i])
			continue
		}

		if c == '"' {
			inString = !inString
			out.WriteByte(c)
			continue
		}

		if inString && c < 0x20 {
			switch c {
			case '\t':
				out.WriteString(`\t`)
			case '\n':
				out.WriteString(`\n`)
			case '\r':
				out.WriteString(`\r`)
			default:
				fmt.Fprintf(&out, `\u%04x`, c)
			}
			continue
		}

		out.WriteByte(c)
	}

	return out.String()
}
