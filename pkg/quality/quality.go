// Package quality runs the post-transform data-quality checks over derived
// records. A failing check halts the run's success status; a warning is
// recorded in the run log but does not.
package quality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

// Status is the outcome of one check.
type Status string

// Check outcomes.
const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Check names.
const (
	CheckNegativeDurations = "negative_durations"
	CheckLongSessions      = "long_sessions"
	CheckOrphanRate        = "orphan_rate"
	CheckTierGroups        = "tier_groups"
	CheckUnknownTiers      = "unknown_tiers"
	CheckOrphanInvariant   = "orphan_invariant"
)

// ErrChecksFailed is returned by Report.Err when at least one check failed.
var ErrChecksFailed = errors.New("data quality checks failed")

// Result is the outcome of one check.
type Result struct {
	Check  string
	Status Status
	Detail string
}

func (r Result) String() string {
	return fmt.Sprintf("%s [%s]: %s", strings.ToUpper(string(r.Status)), r.Check, r.Detail)
}

// Report collects the results of one run of the checks.
type Report struct {
	Results []Result
}

// Passed reports whether no check failed.
func (r Report) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the failed checks.
func (r Report) Failures() []Result {
	return r.filter(StatusFail)
}

// Warnings renders warned and failed checks for the run log.
func (r Report) Warnings() []string {
	var out []string
	for _, res := range r.Results {
		if res.Status == StatusWarn || res.Status == StatusFail {
			out = append(out, res.String())
		}
	}
	return out
}

// Err returns nil when the report passed, otherwise an error wrapping
// ErrChecksFailed that names the failed checks.
func (r Report) Err() error {
	failed := r.Failures()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, f := range failed {
		names[i] = f.Check
	}
	return fmt.Errorf("%w: %s", ErrChecksFailed, strings.Join(names, ", "))
}

func (r Report) filter(s Status) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == s {
			out = append(out, res)
		}
	}
	return out
}

// Thresholds configures the checks.
type Thresholds struct {
	MaxOrphanRate      float64
	MaxDurationMinutes int
	TierGroupA         []string
	TierGroupB         []string
	// KnownTiers lists the tiers the business recognises.
	KnownTiers         []string
}

// Input is the data the checks inspect.
type Input struct {
	Sessions     []reconcile.SessionRecord
	Bookings     []reconcile.BookingRecord
	CurrentTiers []string
}

// Checker runs every check and reports each result to logs and metrics.
type Checker struct {
	thresholds Thresholds
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Checker) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewChecker creates a checker.
func NewChecker(th Thresholds, opts ...Option) *Checker {
	c := &Checker{thresholds: th, metrics: observability.NoopMetrics{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the checks in a fixed order.
func (c *Checker) Run(ctx context.Context, in Input) Report {
	results := []Result{
		NegativeDurations(in.Sessions),
		LongSessions(in.Sessions, c.thresholds.MaxDurationMinutes),
		OrphanRate(in.Bookings, c.thresholds.MaxOrphanRate),
		TierGroups(in.CurrentTiers, c.thresholds.TierGroupA, c.thresholds.TierGroupB),
		UnknownTiers(in.CurrentTiers, c.thresholds.KnownTiers),
		OrphanInvariant(in.Bookings),
	}
	for _, r := range results {
		observability.LogQualityCheck(c.logger, r.Check, string(r.Status), r.Detail)
		c.metrics.RecordQualityCheck(ctx, r.Check, string(r.Status))
	}
	return Report{Results: results}
}
