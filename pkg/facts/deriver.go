package facts

import (
	"context"
	"fmt"
	"log/slog"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

// MergeStats counts the outcome of offering one kind of fact to the store.
type MergeStats struct {
	Kind     Kind
	Inserted int
	Skipped  int

	// Collisions counts records whose ID matched an earlier record of the
	// batch opened by a different event. The later record is skipped.
	Collisions int
}

// Deriver writes reconciled records to a Store, skipping those already there.
type Deriver struct {
	store   Store
	retry   perrors.RetryConfig
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithRetry sets the retry policy for transient store errors.
func WithRetry(cfg perrors.RetryConfig) DeriverOption {
	return func(d *Deriver) {
		d.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DeriverOption {
	return func(d *Deriver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) DeriverOption {
	return func(d *Deriver) {
		if m != nil {
			d.metrics = m
		}
	}
}

// NewDeriver creates a Deriver writing to store.
func NewDeriver(store Store, opts ...DeriverOption) *Deriver {
	d := &Deriver{
		store:   store,
		retry:   perrors.StoreRetry,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MergeSessions offers every session record to the store.
func (d *Deriver) MergeSessions(ctx context.Context, records []reconcile.SessionRecord) (MergeStats, error) {
	fs := make([]Fact, len(records))
	for i, r := range records {
		fs[i] = FromSession(r)
	}
	return d.merge(ctx, KindSession, fs)
}

// MergeBookings offers every booking record to the store.
func (d *Deriver) MergeBookings(ctx context.Context, records []reconcile.BookingRecord) (MergeStats, error) {
	fs := make([]Fact, len(records))
	for i, r := range records {
		fs[i] = FromBooking(r)
	}
	return d.merge(ctx, KindBooking, fs)
}

// Merge offers both record streams of a reconciliation result, sessions first.
func (d *Deriver) Merge(ctx context.Context, res reconcile.Result) ([]MergeStats, error) {
	sessions, err := d.MergeSessions(ctx, res.Sessions)
	if err != nil {
		return []MergeStats{sessions}, err
	}
	bookings, err := d.MergeBookings(ctx, res.Bookings)
	return []MergeStats{sessions, bookings}, err
}

func (d *Deriver) merge(ctx context.Context, kind Kind, fs []Fact) (MergeStats, error) {
	stats := MergeStats{Kind: kind}
	sources := make(map[string]string, len(fs))
	for _, f := range fs {
		if prev, ok := sources[f.ID]; ok && prev != f.SourceID() {
			stats.Collisions++
			d.logger.Warn("fact id collision",
				slog.String("kind", string(kind)),
				slog.String("fact_id", f.ID),
				slog.String("kept", prev),
				slog.String("dropped", f.SourceID()),
			)
		} else if !ok {
			sources[f.ID] = f.SourceID()
		}
		res := perrors.WithRetryContext(ctx, d.retry, func(ctx context.Context) (bool, error) {
			return d.store.InsertIfAbsent(ctx, f)
		})
		if res.Err != nil {
			return stats, fmt.Errorf("merge %s facts: %w", kind, res.Err)
		}
		if res.Attempts > 1 {
			d.logger.Warn("fact insert retried",
				slog.String("fact_id", f.ID),
				slog.Int("attempts", res.Attempts),
			)
		}
		if res.Value {
			stats.Inserted++
		} else {
			stats.Skipped++
		}
	}

	observability.LogMergeStats(d.logger, string(kind), stats.Inserted, stats.Skipped)
	d.metrics.RecordMerge(ctx, string(kind), stats.Inserted, stats.Skipped)
	return stats, nil
}
