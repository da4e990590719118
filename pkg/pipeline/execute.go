package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
)

// Run statuses reported to logs and metrics.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
)

// RunStatus classifies a Run error.
func RunStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	default:
		return StatusFailed
	}
}

// Run executes the graph from the entry step until a route reaches Done.
//
// On error the returned state is the state at the point of failure. Step
// errors are wrapped in *StepError, panics in *PanicError, and a context that
// ends between steps yields *CancellationError.
//
//	ctx := pipeline.NewContext(context.Background(), pipeline.WithLogger(logger))
//	final, err := compiled.Run(ctx, State{Mode: "full"}, pipeline.WithMode("full"))
func (c *Compiled[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := ctx.RunID()
	start := time.Now()
	observability.LogRunStart(cfg.logger, runID, cfg.mode)

	var spanCtx context.Context = ctx
	if cfg.tracingEnabled {
		var span trace.Span
		spanCtx, span = cfg.spans.StartRunSpan(ctx, cfg.mode, runID)
		defer func() {
			cfg.spans.EndSpanWithError(span, runErr)
		}()
	}

	result, count, runErr := c.loop(spanCtx, ctx, state, &cfg)

	elapsed := time.Since(start)
	status := RunStatus(runErr)
	cfg.metrics.RecordRun(ctx, cfg.mode, status, elapsed)
	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, float64(elapsed.Milliseconds()), FailedStep(runErr))
	} else {
		observability.LogRunComplete(cfg.logger, runID, status, float64(elapsed.Milliseconds()), count)
	}
	return result, runErr
}

func (c *Compiled[S]) loop(spanCtx context.Context, ctx Context, state S, cfg *runConfig) (S, int, error) {
	current := c.entry
	executed := 0

	for current != Done {
		if executed >= cfg.maxSteps {
			return state, executed, &MaxStepsError{Max: cfg.maxSteps, StepID: current, State: state}
		}
		if err := ctx.Err(); err != nil {
			return state, executed, &CancellationError{StepID: current, State: state, Cause: err}
		}

		observability.LogStepStart(cfg.logger, current)

		stepBase := spanCtx
		var span trace.Span
		if cfg.tracingEnabled {
			stepBase, span = cfg.spans.StartStepSpan(spanCtx, current)
		}

		began := time.Now()
		var err error
		state, err = c.execute(ctx, stepBase, current, state, cfg.stepTimeout)
		elapsed := time.Since(began)

		cfg.metrics.RecordStep(stepBase, current, elapsed, err)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(span, err)
		}
		if err != nil {
			observability.LogStepError(cfg.logger, current, err)
			return state, executed, err
		}
		observability.LogStepComplete(cfg.logger, current, float64(elapsed.Milliseconds()))
		executed++

		next, err := c.route(ctx, state, current)
		if err != nil {
			return state, executed, err
		}
		current = next
	}
	return state, executed, nil
}

// execute runs one step with panic recovery and the optional step deadline.
func (c *Compiled[S]) execute(ctx Context, base context.Context, id string, state S, timeout time.Duration) (result S, err error) {
	fn, ok := c.steps[id]
	if !ok {
		return state, &StepError{StepID: id, Op: "lookup", Err: ErrStepNotFound}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		base, cancel = context.WithTimeout(base, timeout)
		defer cancel()
	}
	stepCtx := stepContext(ctx, base, id)

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{StepID: id, Value: r, Stack: string(debug.Stack())}
		}
	}()

	out, err := fn(stepCtx, state)
	if err != nil {
		return out, &StepError{StepID: id, Op: "execute", Err: err}
	}
	return out, nil
}

func (c *Compiled[S]) route(ctx Context, state S, current string) (string, error) {
	if router, ok := c.routers[current]; ok {
		next := router(stepContext(ctx, ctx, current), state)
		switch {
		case next == "":
			return "", &RouterError{FromStep: current, Returned: next, Err: ErrEmptyRoute}
		case next == Done:
			return next, nil
		case !c.HasStep(next):
			return "", &RouterError{FromStep: current, Returned: next, Err: ErrUnknownRouteTarget}
		}
		return next, nil
	}

	next, ok := c.next[current]
	if !ok {
		return "", &StepError{StepID: current, Op: "route", Err: fmt.Errorf("no outgoing edge from %s", current)}
	}
	return next, nil
}
