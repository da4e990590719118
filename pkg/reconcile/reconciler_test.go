package reconcile_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []reconcile.Event {
	return []reconcile.Event{
		evFor("e01", "u1", "M01", reconcile.BookingRequested, 0),
		evFor("e02", "u1", "M01", reconcile.BookingConfirmed, 5),
		evFor("e03", "u1", "M01", reconcile.SessionStarted, 60),
		evFor("e04", "u1", "M01", reconcile.SessionEnded, 105),
		evFor("e05", "u1", "M02", reconcile.BookingRequested, 0),
		evFor("e06", "u1", "M02", reconcile.BookingCancelled, 30),
		evFor("e07", "u2", "M01", reconcile.BookingRequested, 10),
		evFor("e08", "u2", "M01", reconcile.SessionStarted, 200),
		evFor("e09", "u2", "M01", reconcile.SessionStarted, 400),
		evFor("e10", "u2", "M01", reconcile.SessionEnded, 430),
		evFor("e11", "u3", "M03", reconcile.BookingRequested, 0),
		evFor("e12", "u3", "M03", reconcile.BookingConfirmed, 1),
	}
}

func TestNew_RejectsNonPositiveDuration(t *testing.T) {
	_, err := reconcile.New(0)
	assert.ErrorIs(t, err, reconcile.ErrInvalidDuration)

	_, err = reconcile.New(-time.Minute)
	assert.ErrorIs(t, err, reconcile.ErrInvalidDuration)
}

func TestReconciler_Reconcile(t *testing.T) {
	r, err := reconcile.New(30*time.Minute, reconcile.WithWorkers(2))
	require.NoError(t, err)

	res, err := r.Reconcile(context.Background(), sampleEvents())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Stats.Partitions)
	assert.Equal(t, 3, res.Stats.Sessions)
	assert.Equal(t, 1, res.Stats.EstimatedDurations)
	assert.Equal(t, 4, res.Stats.Bookings)
	assert.Equal(t, 1, res.Stats.Orphans)
	assert.Equal(t, 1, res.Stats.ByOutcome[reconcile.OutcomeConfirmedAttended])
	assert.Equal(t, 1, res.Stats.ByOutcome[reconcile.OutcomeCancelled])
	assert.Equal(t, 1, res.Stats.ByOutcome[reconcile.OutcomePending])
	assert.Equal(t, 1, res.Stats.ByOutcome[reconcile.OutcomeNoShow])

	ids := make([]string, 0, len(res.Bookings))
	for _, b := range res.Bookings {
		ids = append(ids, b.BookingID)
	}
	assert.Equal(t, []string{"e01", "e05", "e07", "e11"}, ids)

	for _, b := range res.Bookings {
		assert.Equal(t, b.OutcomeStatus == reconcile.OutcomePending, b.IsOrphanRequest, b.BookingID)
	}
}

func TestReconciler_PartitionsAreIsolated(t *testing.T) {
	r, err := reconcile.New(30 * time.Minute)
	require.NoError(t, err)

	res, err := r.Reconcile(context.Background(), []reconcile.Event{
		evFor("r1", "u1", "M01", reconcile.BookingRequested, 0),
		evFor("c1", "u1", "M01", reconcile.BookingConfirmed, 5),
		evFor("s1", "u1", "M02", reconcile.SessionStarted, 60),
	})
	require.NoError(t, err)
	require.Len(t, res.Bookings, 1)
	assert.Equal(t, reconcile.OutcomeNoShow, res.Bookings[0].OutcomeStatus,
		"a session with another mentor is not attendance")
}

func TestReconciler_DeterministicUnderShuffle(t *testing.T) {
	want, err := mustReconciler(t, 1).Reconcile(context.Background(), sampleEvents())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		events := sampleEvents()
		rng.Shuffle(len(events), func(a, b int) { events[a], events[b] = events[b], events[a] })

		got, err := mustReconciler(t, 1+i%4).Reconcile(context.Background(), events)
		require.NoError(t, err)
		assert.Equal(t, want.Sessions, got.Sessions)
		assert.Equal(t, want.Bookings, got.Bookings)
	}
}

func TestReconciler_InvalidEventFailsFast(t *testing.T) {
	events := sampleEvents()
	events[3].MentorID = ""

	_, err := mustReconciler(t, 2).Reconcile(context.Background(), events)
	require.Error(t, err)
	assert.True(t, perrors.IsIntegrity(err))

	var die *perrors.DataIntegrityError
	require.ErrorAs(t, err, &die)
	assert.Equal(t, "e04", die.Record)
	assert.Equal(t, "mentor_id", die.Field)
}

func TestReconciler_UnknownTypeIsIntegrityError(t *testing.T) {
	events := []reconcile.Event{evFor("x", "u1", "M01", reconcile.EventType("session_paused"), 0)}

	_, err := mustReconciler(t, 1).Reconcile(context.Background(), events)
	assert.True(t, perrors.IsIntegrity(err))
}

func TestReconciler_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mustReconciler(t, 1).Reconcile(ctx, sampleEvents())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconciler_Empty(t *testing.T) {
	res, err := mustReconciler(t, 1).Reconcile(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Sessions)
	assert.Empty(t, res.Bookings)
	assert.Equal(t, 0, res.Stats.Partitions)
}

func mustReconciler(t *testing.T, workers int) *reconcile.Reconciler {
	t.Helper()
	r, err := reconcile.New(30*time.Minute, reconcile.WithWorkers(workers))
	require.NoError(t, err)
	return r
}
