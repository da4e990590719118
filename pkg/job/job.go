// Package job assembles the pipeline steps into a graph and runs it once per
// invocation, recording every run in the warehouse run log.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/diegopettorossi/pack-data-challenge/pkg/config"
	"github.com/diegopettorossi/pack-data-challenge/pkg/dimension"
	"github.com/diegopettorossi/pack-data-challenge/pkg/facts"
	"github.com/diegopettorossi/pack-data-challenge/pkg/ingest"
	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
	"github.com/diegopettorossi/pack-data-challenge/pkg/pipeline"
	"github.com/diegopettorossi/pack-data-challenge/pkg/quality"
	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
	"github.com/diegopettorossi/pack-data-challenge/pkg/warehouse"
)

// Deps are the collaborators of a Job. Logger, Metrics, Spans and Now are
// optional.
type Deps struct {
	Config     config.Pipeline
	Loader     *ingest.Loader
	Raw        *ingest.RawStore
	Reconciler *reconcile.Reconciler
	Facts      facts.Store
	Deriver    *facts.Deriver
	Tracker    *dimension.Tracker
	Checker    *quality.Checker
	RunLog     *warehouse.RunLog

	Logger  *slog.Logger
	Metrics observability.MetricsRecorder
	Spans   observability.SpanManager
	Now     func() time.Time
}

// ErrMissingDependency indicates a required Deps field is nil.
var ErrMissingDependency = errors.New("missing job dependency")

func (d Deps) validate() error {
	var errs []error
	check := func(name string, missing bool) {
		if missing {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDependency, name))
		}
	}
	check("Loader", d.Loader == nil)
	check("Raw", d.Raw == nil)
	check("Reconciler", d.Reconciler == nil)
	check("Facts", d.Facts == nil)
	check("Deriver", d.Deriver == nil)
	check("Tracker", d.Tracker == nil)
	check("Checker", d.Checker == nil)
	check("RunLog", d.RunLog == nil)
	return errors.Join(errs...)
}

// Summary is the outcome of one run.
type Summary struct {
	RunID         string
	Mode          Mode
	Status        warehouse.RunStatus
	NewEvents     int
	NewUsers      int
	FactsInserted int
	FactsSkipped  int
	Dimension     dimension.TrackStats
	DQPassed      *bool
	Warnings      []string
	Duration      time.Duration
}

// Job runs the pipeline.
type Job struct {
	deps  Deps
	graph *pipeline.Compiled[State]
}

// New validates deps and compiles the step graph.
func New(deps Deps) (*Job, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	j := &Job{deps: deps}
	graph, err := j.buildGraph().Compile()
	if err != nil {
		return nil, fmt.Errorf("compile pipeline: %w", err)
	}
	j.graph = graph
	return j, nil
}

// Run executes one pipeline run in the given mode. The run is recorded in
// the run log before the first step and finished after the last, whatever
// the outcome. The returned Summary is valid even when err is not nil.
func (j *Job) Run(ctx context.Context, mode Mode) (Summary, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return Summary{}, err
	}

	runID := uuid.NewString()
	started := j.deps.Now()
	sum := Summary{RunID: runID, Mode: mode, Status: warehouse.RunRunning}

	if err := j.deps.RunLog.Start(ctx, warehouse.RunEntry{
		RunID:      runID,
		StartedAt:  started,
		Mode:       string(mode),
		ConfigJSON: j.deps.Config.JSON(),
	}); err != nil {
		return sum, err
	}

	opts := []pipeline.RunOption{
		pipeline.WithMode(string(mode)),
		pipeline.WithRunLogger(j.deps.Logger),
		pipeline.WithMetrics(j.deps.Metrics),
		pipeline.WithStepTimeout(j.deps.Config.StepTimeout),
	}
	if j.deps.Spans != nil {
		opts = append(opts, pipeline.WithTracing(j.deps.Spans))
	}

	pctx := pipeline.NewContext(ctx,
		pipeline.WithLogger(j.deps.Logger),
		pipeline.WithContextRunID(runID),
	)
	final, runErr := j.graph.Run(pctx, State{Mode: mode, DetectedAt: started}, opts...)

	finished := j.deps.Now()
	sum.Status = warehouse.RunStatus(pipeline.RunStatus(runErr))
	sum.NewEvents = final.NewEvents
	sum.NewUsers = final.NewUsers
	sum.FactsInserted, sum.FactsSkipped = final.factCounts()
	sum.Dimension = final.Dimension
	sum.Warnings = final.Warnings
	sum.Duration = finished.Sub(started)
	if final.Quality != nil {
		passed := final.Quality.Passed()
		sum.DQPassed = &passed
	}

	entry := warehouse.RunEntry{
		RunID:         runID,
		FinishedAt:    &finished,
		Status:        sum.Status,
		NewEvents:     sum.NewEvents,
		NewUsers:      sum.NewUsers,
		FactsInserted: sum.FactsInserted,
		FactsSkipped:  sum.FactsSkipped,
		DQPassed:      sum.DQPassed,
		Warnings:      sum.Warnings,
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	// The run context may be what ended the run; the log entry must still land.
	if err := j.deps.RunLog.Finish(context.WithoutCancel(ctx), entry); err != nil {
		return sum, errors.Join(runErr, err)
	}
	return sum, runErr
}
