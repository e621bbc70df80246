package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyColumn means a statistic was requested over a column with no
	// non-missing values. Fatal for the run.
	ErrEmptyColumn = errors.New("empty column")

	// ErrMissingColumn means a referenced column is not part of the schema.
	// This is a configuration error.
	ErrMissingColumn = errors.New("missing column")

	// ErrColumnType means a column exists but has the wrong declared type for
	// the requested operation.
	ErrColumnType = errors.New("column type mismatch")

	// ErrDivisionUndefined marks a zero denominator during feature derivation.
	// It is recovered locally by writing Missing and is never fatal.
	ErrDivisionUndefined = errors.New("division undefined")

	// ErrIO classifies failures of the external loader or sink.
	ErrIO = errors.New("io failure")
)

// ColumnError wraps a column-level failure with the operation and column name.
//
// errors.Is(err, ErrEmptyColumn) etc. keep working through the wrapper.
type ColumnError struct {
	Op     string
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: column %q: %v", e.Op, e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

func columnErr(op, column string, err error) error {
	return &ColumnError{Op: op, Column: column, Err: err}
}
