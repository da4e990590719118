// Package pipeline runs a small directed graph of named steps over a shared
// state value. It is the orchestration layer of the batch job: each step is
// logged, timed, traced and recovered from panics, and conditional edges
// select which steps a run mode executes.
package pipeline

import (
	"errors"
	"fmt"
)

// Graph construction errors returned by Compile.
var (
	ErrNoEntry        = errors.New("entry step not set")
	ErrEntryNotFound  = errors.New("entry step not found")
	ErrStepNotFound   = errors.New("step not found")
	ErrNoPathToDone   = errors.New("no path to done from entry")
	ErrAmbiguousRoute = errors.New("step has more than one outgoing route")
)

// Run errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrMaxSteps           = errors.New("exceeded maximum steps")
	ErrEmptyRoute         = errors.New("router returned empty string")
	ErrUnknownRouteTarget = errors.New("router returned unknown step")
)

// StepError wraps a step failure with the step that produced it.
type StepError struct {
	StepID string
	Op     string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %s: %v", e.StepID, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// PanicError is returned when a step panics. Stack holds the goroutine stack
// at the point of recovery.
type PanicError struct {
	StepID string
	Value  any
	Stack  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step %s panicked: %v", e.StepID, e.Value)
}

// CancellationError reports that the run context ended before StepID could
// start. State is the last state produced.
type CancellationError struct {
	StepID string
	State  any
	Cause  error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before step %s: %v", e.StepID, e.Cause)
}

func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RouterError reports an invalid router result.
type RouterError struct {
	FromStep string
	Returned string
	Err      error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router after %s returned %q: %v", e.FromStep, e.Returned, e.Err)
}

func (e *RouterError) Unwrap() error {
	return e.Err
}

// MaxStepsError is returned when a run executes more steps than allowed,
// which only happens when routers form a loop.
type MaxStepsError struct {
	Max    int
	StepID string
	State  any
}

func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("exceeded maximum steps (%d) at step %s", e.Max, e.StepID)
}

func (e *MaxStepsError) Unwrap() error {
	return ErrMaxSteps
}

// FailedStep returns the step a run error is attributed to, or "".
func FailedStep(err error) string {
	var (
		stepErr   *StepError
		panicErr  *PanicError
		cancelErr *CancellationError
		routerErr *RouterError
		maxErr    *MaxStepsError
	)
	switch {
	case errors.As(err, &stepErr):
		return stepErr.StepID
	case errors.As(err, &panicErr):
		return panicErr.StepID
	case errors.As(err, &cancelErr):
		return cancelErr.StepID
	case errors.As(err, &routerErr):
		return routerErr.FromStep
	case errors.As(err, &maxErr):
		return maxErr.StepID
	}
	return ""
}
