package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
)

// Context is the context handed to steps and routers. It carries the run
// identity and a logger already enriched with run_id and step_id.
type Context interface {
	context.Context

	// Logger never returns nil.
	Logger() *slog.Logger

	RunID() string

	// StepID is empty outside a step.
	StepID() string
}

type runContext struct {
	context.Context

	base   *slog.Logger
	logger *slog.Logger
	runID  string
	stepID string
}

func (c *runContext) Logger() *slog.Logger { return c.logger }
func (c *runContext) RunID() string { return c.runID }
func (c *runContext) StepID() string { return c.stepID }

// ContextOption configures NewContext.
type ContextOption func(*runContext)

// WithLogger sets the base logger. It is enriched with run_id and step_id
// during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *runContext) {
		c.base = logger
	}
}

// WithContextRunID sets the run identifier. A UUID is generated otherwise.
func WithContextRunID(id string) ContextOption {
	return func(c *runContext) {
		c.runID = id
	}
}

// NewContext wraps ctx for a run.
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	c := &runContext{Context: ctx}
	for _, opt := range opts {
		opt(c)
	}
	if c.base == nil {
		c.base = slog.Default()
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	c.logger = c.base.With(slog.String("run_id", c.runID))
	return c
}

// stepContext derives the context for one step. base replaces the embedded
// context.Context so that step code sees the step span.
func stepContext(ctx Context, base context.Context, stepID string) Context {
	parent := ctx.Logger()
	if rc, ok := ctx.(*runContext); ok {
		parent = rc.base
	}
	return &runContext{
		Context: base,
		base:    parent,
		logger:  observability.EnrichLogger(parent, ctx.RunID(), stepID),
		runID:   ctx.RunID(),
		stepID:  stepID,
	}
}
