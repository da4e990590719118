package reconcile_test

import (
	"testing"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

// base is the reference instant all test events are offset from.
var base = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

// at returns base plus the given number of minutes.
func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

// ev builds an event for user u1 / mentor M01 at base+minutes.
func ev(id string, typ reconcile.EventType, minutes int) reconcile.Event {
	return evFor(id, "u1", "M01", typ, minutes)
}

// evFor builds an event for an explicit pair key.
func evFor(id, user, mentor string, typ reconcile.EventType, minutes int) reconcile.Event {
	return reconcile.Event{
		ID:        id,
		UserID:    user,
		MentorID:  mentor,
		Type:      typ,
		Timestamp: at(minutes),
	}
}

// partition builds a single partition from events of one pair key.
func partition(t *testing.T, events ...reconcile.Event) reconcile.Partition {
	t.Helper()
	parts := reconcile.PartitionEvents(events)
	if len(parts) != 1 {
		t.Fatalf("expected one partition, got %d", len(parts))
	}
	return parts[0]
}
