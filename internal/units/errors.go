package units

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidUnit is returned when a unit suffix is missing or not recognized.
	ErrInvalidUnit = errors.New("invalid unit")
	// ErrInvalidMagnitude is returned when the numeric part is missing or out of range.
	ErrInvalidMagnitude = errors.New("invalid magnitude")
	// ErrInvalidDuration is returned for text that is not a supported ISO-8601 duration,
	// or for a duration whose precision does not allow the given component.
	ErrInvalidDuration = errors.New("invalid duration")
)

// ParseError describes a value that could not be parsed.
// Kind is one of the sentinel errors above and is reachable with errors.Is.
type ParseError struct {
	Kind  error
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %q", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Kind }

func parseErr(kind error, input string) error {
	return &ParseError{Kind: kind, Input: input}
}
