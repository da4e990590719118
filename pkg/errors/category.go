// Package errors classifies pipeline failures and retries the recoverable ones.
//
// The package separates three kinds of failure:
//   - Integrity: the input data is malformed. The run halts and nothing is coerced.
//   - Transient: the store was busy or a deadline was hit. Retrying may help.
//   - Permanent: anything else. The run halts.
//
// Anomalies that are encoded as data (orphan requests, estimated durations,
// duplicate facts) are not errors and never reach this package.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Category tells the caller whether a failure is worth another attempt.
type Category int

const (
	CategoryPermanent Category = iota
	// CategoryTransient covers lock contention: a busy SQLite file or a
	// Postgres serialization failure.
	CategoryTransient
	// CategoryIntegrity means the input broke a required contract. The run
	// aborts before writing anything derived from it.
	CategoryIntegrity
)

var categoryNames = [...]string{
	CategoryPermanent: "permanent",
	CategoryTransient: "transient",
	CategoryIntegrity: "integrity",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// CategorizedError attaches a Category and the attempt count to an error.
type CategorizedError struct {
	Err      error
	Category Category
	Retries  int
	Context  string // operation being attempted, may be empty
}

func (e *CategorizedError) Error() string {
	msg := fmt.Sprintf("%s (category: %s, attempts: %d)", e.Err, e.Category, e.Retries)
	if e.Context == "" {
		return msg
	}
	return e.Context + ": " + msg
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// NewCategorized tags err with category.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{Err: err, Category: category, Context: context}
}

// Transient marks err as worth retrying.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent marks err as final.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// busyMarkers are driver messages for lock contention that clears on its own.
var busyMarkers = []string{
	"database is locked",
	"SQLITE_BUSY",
	"could not serialize access",
	"deadlock detected",
}

func isBusy(err error) bool {
	msg := err.Error()
	for _, m := range busyMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Categorize decides how err is handled. Checks run in priority order:
// integrity anywhere in the chain wins, then an explicit category, then
// timeouts, then run cancellation, then driver busy messages. Everything
// else, nil included, is permanent.
func Categorize(err error) Category {
	var (
		tagged  *CategorizedError
		timeout *TimeoutError
	)
	switch {
	case err == nil:
		return CategoryPermanent
	case errors.Is(err, ErrDataIntegrity):
		return CategoryIntegrity
	case errors.As(err, &tagged):
		return tagged.Category
	case errors.As(err, &timeout):
		return CategoryTransient
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryPermanent
	case isBusy(err):
		return CategoryTransient
	}
	return CategoryPermanent
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool { return Categorize(err) == CategoryTransient }

// IsIntegrity reports whether err is a data integrity violation.
func IsIntegrity(err error) bool { return Categorize(err) == CategoryIntegrity }
