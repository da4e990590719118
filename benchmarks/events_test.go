package benchmarks

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// generateEvents builds a deterministic event log over the given number of
// (user, mentor) partitions. Each partition holds a few sessions and
// bookings; roughly one in five closers is dropped so that estimated
// durations and pending bookings are exercised too.
func generateEvents(partitions int) []reconcile.Event {
	rng := rand.New(rand.NewSource(42))
	var events []reconcile.Event
	n := 0
	next := func(user, mentor string, typ reconcile.EventType, at time.Time) {
		n++
		events = append(events, reconcile.Event{
			ID:        fmt.Sprintf("e%07d", n),
			UserID:    user,
			MentorID:  mentor,
			Type:      typ,
			Timestamp: at,
		})
	}

	for p := 0; p < partitions; p++ {
		user := fmt.Sprintf("%d", p/10)
		mentor := fmt.Sprintf("M%02d", p%10)
		at := base.Add(time.Duration(p) * time.Hour)

		for s := 0; s < 4; s++ {
			next(user, mentor, reconcile.BookingRequested, at)
			switch rng.Intn(5) {
			case 0:
			case 1:
				next(user, mentor, reconcile.BookingCancelled, at.Add(5*time.Minute))
			default:
				next(user, mentor, reconcile.BookingConfirmed, at.Add(5*time.Minute))
			}
			start := at.Add(24 * time.Hour)
			next(user, mentor, reconcile.SessionStarted, start)
			if rng.Intn(5) != 0 {
				next(user, mentor, reconcile.SessionEnded, start.Add(time.Duration(20+rng.Intn(60))*time.Minute))
			}
			at = at.Add(48 * time.Hour)
		}
	}

	rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
	return events
}
