package errors

import (
	"errors"
	"fmt"
)

// ErrDataIntegrity is the sentinel every DataIntegrityError unwraps to.
var ErrDataIntegrity = errors.New("data integrity violation")

// DataIntegrityError reports a malformed or missing required field in input data.
type DataIntegrityError struct {
	// Source names the input (file name, table, or "events").
	Source string
	// Record identifies the offending record (event ID or row/index label).
	Record string
	// Field is the field that failed validation.
	Field string
	// Reason describes the violation.
	Reason string
}

// Error implements the error interface.
func (e *DataIntegrityError) Error() string {
	loc := e.Source
	if e.Record != "" {
		loc = fmt.Sprintf("%s[%s]", e.Source, e.Record)
	}
	if e.Field != "" {
		return fmt.Sprintf("data integrity: %s: field %s: %s", loc, e.Field, e.Reason)
	}
	return fmt.Sprintf("data integrity: %s: %s", loc, e.Reason)
}

// Unwrap returns ErrDataIntegrity for errors.Is support.
func (e *DataIntegrityError) Unwrap() error {
	return ErrDataIntegrity
}

// Integrity is a shorthand constructor for DataIntegrityError.
func Integrity(source, record, field, reason string) *DataIntegrityError {
	return &DataIntegrityError{Source: source, Record: record, Field: field, Reason: reason}
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}
