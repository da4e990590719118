// Package reconcile pairs start/request events with their end/outcome events.
//
// All pairing is local to one (user, mentor) partition and bounded by the next
// opener of the same type, so a missing or late event can only affect the one
// record it belongs to. Reconciliation is a pure function of the event set:
// the arrival order of events never changes the output.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidDuration indicates a non-positive default session duration.
var ErrInvalidDuration = errors.New("default session duration must be positive")

// Stats summarises one reconciliation pass.
type Stats struct {
	Partitions         int
	Sessions           int
	EstimatedDurations int
	Bookings           int
	Orphans            int
	ByOutcome          map[OutcomeStatus]int
}

// Result holds the derived records, ordered by PairKey then opener time.
type Result struct {
	Sessions []SessionRecord
	Bookings []BookingRecord
	Stats    Stats
}

// Reconciler runs the session and booking reconcilers over a full event set.
type Reconciler struct {
	defaultDuration time.Duration
	workers         int
	logger          *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithWorkers bounds the number of partitions reconciled concurrently.
// Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Reconciler that estimates missing session ends as
// defaultDuration after the start.
func New(defaultDuration time.Duration, opts ...Option) (*Reconciler, error) {
	if defaultDuration <= 0 {
		return nil, ErrInvalidDuration
	}
	r := &Reconciler{
		defaultDuration: defaultDuration,
		workers:         runtime.GOMAXPROCS(0),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type partitionResult struct {
	sessions []SessionRecord
	bookings []BookingRecord
}

// Reconcile validates every event, then reconciles each partition.
//
// The first invalid event aborts the pass with a data integrity error before
// any record is produced. Partitions are processed concurrently; results are
// collected in partition order so the output is deterministic.
func (r *Reconciler) Reconcile(ctx context.Context, events []Event) (Result, error) {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return Result{}, err
		}
	}

	parts := PartitionEvents(events)
	slots := make([]partitionResult, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = partitionResult{
				sessions: ReconcileSessions(parts[i], r.defaultDuration),
				bookings: ReconcileBookings(parts[i]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Stats: Stats{
		Partitions: len(parts),
		ByOutcome:  make(map[OutcomeStatus]int),
	}}
	for _, s := range slots {
		res.Sessions = append(res.Sessions, s.sessions...)
		res.Bookings = append(res.Bookings, s.bookings...)
	}
	for _, s := range res.Sessions {
		if s.IsDurationEstimated {
			res.Stats.EstimatedDurations++
		}
	}
	for _, b := range res.Bookings {
		res.Stats.ByOutcome[b.OutcomeStatus]++
		if b.IsOrphanRequest {
			res.Stats.Orphans++
		}
	}
	res.Stats.Sessions = len(res.Sessions)
	res.Stats.Bookings = len(res.Bookings)

	r.logger.Debug("reconciled events",
		slog.Int("events", len(events)),
		slog.Int("partitions", res.Stats.Partitions),
		slog.Int("sessions", res.Stats.Sessions),
		slog.Int("bookings", res.Stats.Bookings),
		slog.Int("orphans", res.Stats.Orphans),
	)
	return res, nil
}
