package loader

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn     = errors.New("required column missing")
	ErrUnsupportedFormat = errors.New("unsupported source format")
	ErrBadValue          = errors.New("value is not a number")
)

// LoadError reports a source that could not be read as a route table.
// Row and Column are set when the failure is tied to a cell or header.
type LoadError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "load " + e.Source
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	return msg + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
