package dimension

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
)

// TrackStats counts the transitions of one Apply call.
type TrackStats struct {
	Opened    int
	Changed   int
	Unchanged int
}

// Tracker applies mentor observations to a Store.
type Tracker struct {
	store   Store
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) TrackerOption {
	return func(t *Tracker) {
		if m != nil {
			t.metrics = m
		}
	}
}

// NewTracker creates a Tracker over store.
func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:   store,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply compares the latest observation of each mentor with its open version
// and writes the resulting transitions. Observations are validated before
// anything is written. Running Apply twice with the same observations writes
// nothing the second time.
func (t *Tracker) Apply(ctx context.Context, observations []Snapshot, detectedAt time.Time) (TrackStats, error) {
	var stats TrackStats
	for _, o := range observations {
		if err := o.Validate(); err != nil {
			return stats, err
		}
	}

	current, err := t.store.Current(ctx)
	if err != nil {
		return stats, fmt.Errorf("load current mentors: %w", err)
	}

	for _, o := range Latest(observations) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var open *Version
		if v, ok := current[o.MentorID]; ok {
			open = &v
		}
		tr, err := Diff(open, o, detectedAt)
		if err != nil {
			return stats, err
		}
		if err := t.store.Apply(ctx, tr); err != nil {
			return stats, fmt.Errorf("apply %s transition for mentor %s: %w", tr.Kind, o.MentorID, err)
		}

		switch tr.Kind {
		case Opened:
			stats.Opened++
		case Changed:
			stats.Changed++
			t.logger.Debug("mentor tier changed",
				slog.String("mentor_id", o.MentorID),
				slog.String("from", tr.Close.Tier),
				slog.String("to", tr.Open.Tier),
			)
		default:
			stats.Unchanged++
		}
	}

	observability.LogDimensionStats(t.logger, stats.Opened, stats.Changed, stats.Unchanged)
	t.metrics.RecordDimension(ctx, stats.Opened, stats.Changed, stats.Unchanged)
	return stats, nil
}

// CurrentTiers returns the distinct tiers among open versions.
func (t *Tracker) CurrentTiers(ctx context.Context) ([]string, error) {
	current, err := t.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return CurrentTiers(current), nil
}
