package problem

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is wrapped by every parse failure.
	ErrMalformed = errors.New("malformed instance")

	ErrMissingSection = fmt.Errorf("%w: unexpected end of file", ErrMalformed)
	ErrFieldCount     = fmt.Errorf("%w: wrong number of fields", ErrMalformed)
	ErrNotANumber     = fmt.Errorf("%w: not a number", ErrMalformed)
	ErrOutOfRange     = fmt.Errorf("%w: index out of range", ErrMalformed)
	ErrDuplicateRow   = fmt.Errorf("%w: duplicate row", ErrMalformed)
	ErrTrailingData   = fmt.Errorf("%w: trailing data", ErrMalformed)
)

// ParseError locates a parse failure in the source file.
type ParseError struct {
	Line    int // 1-based; 0 when the failure is at end of file
	Section string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Section, e.Err)
	}
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Section, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
