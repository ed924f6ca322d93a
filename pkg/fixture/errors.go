package fixture

import (
	"encoding/csv"
	"errors"
	"fmt"
)

var (
	ErrEmptyPath    = errors.New("empty fixture path")
	ErrNotFound     = errors.New("fixture not found")
	ErrAccessDenied = errors.New("fixture access denied")

	ErrEmptyColumn     = errors.New("empty column name")
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// LoadError is returned by every failed load. Path is the path as the
// caller passed it, Resolved the file that was actually read.
type LoadError struct {
	Path     string
	Resolved string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to read fixture %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ParseError reports content that is not a well-formed fixture.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	var csvErr *csv.ParseError
	if errors.As(e.Err, &csvErr) || e.Line == 0 {
		return fmt.Sprintf("malformed fixture: %v", e.Err)
	}
	return fmt.Sprintf("malformed fixture at line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(err error) *ParseError {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Column: csvErr.Column, Err: csvErr}
	}
	return &ParseError{Err: err}
}
