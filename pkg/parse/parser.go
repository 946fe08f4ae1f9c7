package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Parse turns near-valid JSON text into a File of pending records.
//
// Recovery is staged, each stage attempted only when the previous one fails:
// direct decode of the normalized text, decode after unescaped-quote repair,
// decode after quote repair plus control-character escaping. When every stage
// fails, the error from the first decode is returned with positional
// diagnostics; repaired variants only ever move offsets around.
func Parse(in Input) (*File, error) {
	text := NormalizeText(in.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	value, firstErr := decode(text)
	if firstErr != nil {
		repaired := RepairQuotes(text)
		v, err := decode(repaired)
		if err != nil {
			v, err = decode(EscapeControlChars(repaired))
		}
		if err != nil {
			return nil, diagnose(text, firstErr)
		}
		value = v
	}

	return buildFile(in.Source, value)
}

// decode parses a single JSON value and rejects trailing content. Numbers
// are kept as json.Number so integer-looking values survive a round trip.
func decode(text string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, fmt.Errorf("trailing content: %w", err)
	}
	return v, nil
}

// buildFile applies the shape check: a non-empty array of non-null objects,
// or a single object with at least one key
func buildFile(source string, value interface{}) (*File, error) {
	f := &File{Source: source}

	switch v := value.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil, ErrEmptyArray
		}
		for _, el := range v {
			obj, ok := el.(map[string]interface{})
			if !ok {
				return nil, ErrMixedArray
			}
			f.Records = append(f.Records, &Record{Fields: obj, Status: StatusPending})
		}
	case map[string]interface{}:
		if len(v) == 0 {
			return nil, ErrEmptyObject
		}
		f.Records = append(f.Records, &Record{Fields: v, Status: StatusPending})
	default:
		return nil, ErrInvalidRoot
	}

	return f, nil
}

// windowRadius is how much source text to show on each side of a parse
// error offset
const windowRadius = 25

// diagnose wraps a decoder error with offset, source window and offending
// code point when the underlying error names a position
func diagnose(text string, err error) *ParseError {
	pe := &ParseError{Message: err.Error(), Offset: -1}

	var synErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &synErr) {
		pe.Offset = synErr.Offset
	} else if errors.As(err, &typeErr) {
		pe.Offset = typeErr.Offset
	}

	if pe.Offset >= 0 && pe.Offset <= int64(len(text)) {
		off := int(pe.Offset)
		start := off - windowRadius
		if start < 0 {
			start = 0
		}
		end := off + windowRadius
		if end > len(text) {
			end = len(text)
		}
		// Offsets are bytes; pull the boundaries back to rune starts so the
		// window stays valid UTF-8 when it lands inside a multibyte character.
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end--
		}
		pe.Window = text[start:end]
		if off < len(text) {
			r, _ := utf8.DecodeRuneInString(text[off:])
			pe.CodePoint = r
		}
	}

	return pe
}
