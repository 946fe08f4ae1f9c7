package parse

import (
	"errors"
	"fmt"
)

// Input shape errors, detected before any network call and never retried.
var (
	ErrEmptyInput  = errors.New("input is empty")
	ErrEmptyArray  = errors.New("input array contains no records")
	ErrMixedArray  = errors.New("input array contains elements that are not objects")
	ErrEmptyObject = errors.New("input object has no fields")
	ErrInvalidRoot = errors.New("input root must be an object or an array of objects")
)

// ParseError reports an unrecoverable parse failure with positional
// diagnostics taken from the first (unrepaired) decode attempt
type ParseError struct {
	Message   string // original decoder error message
	Offset    int64  // byte offset into the normalized input, -1 if unknown
	Window    string // source text around the offset
	CodePoint rune   // character at the offset, 0 if unknown
}

func (e *ParseError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("json parse failed: %s", e.Message)
	}
	return fmt.Sprintf("json parse failed: %s (offset %d, char %q, near %q)",
		e.Message, e.Offset, e.CodePoint, e.Window)
}

// GetParseError extracts a ParseError from err if possible
func GetParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
