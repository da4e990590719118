package reconcile_test

import (
	"testing"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closerID(p reconcile.Pairing) string {
	if p.Closer == nil {
		return ""
	}
	return p.Closer.ID
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		openers []reconcile.Event
		closers []reconcile.Event
		want    []string // closer ID per opener, "" for no match
	}{
		{
			name:    "single pair",
			openers: []reconcile.Event{ev("s1", reconcile.SessionStarted, 0)},
			closers: []reconcile.Event{ev("e1", reconcile.SessionEnded, 30)},
			want:    []string{"e1"},
		},
		{
			name:    "no closers",
			openers: []reconcile.Event{ev("s1", reconcile.SessionStarted, 0)},
			want:    []string{""},
		},
		{
			name:    "earliest closer wins",
			openers: []reconcile.Event{ev("s1", reconcile.SessionStarted, 0)},
			closers: []reconcile.Event{
				ev("e2", reconcile.SessionEnded, 50),
				ev("e1", reconcile.SessionEnded, 20),
			},
			want: []string{"e1"},
		},
		{
			name:    "closer before opener is ignored",
			openers: []reconcile.Event{ev("s1", reconcile.SessionStarted, 10)},
			closers: []reconcile.Event{ev("e0", reconcile.SessionEnded, 5)},
			want:    []string{""},
		},
		{
			name:    "closer at opener timestamp is not strictly after",
			openers: []reconcile.Event{ev("s1", reconcile.SessionStarted, 10)},
			closers: []reconcile.Event{ev("e0", reconcile.SessionEnded, 10)},
			want:    []string{""},
		},
		{
			name: "closer at next opener timestamp belongs to neither window",
			openers: []reconcile.Event{
				ev("s1", reconcile.SessionStarted, 0),
				ev("s2", reconcile.SessionStarted, 60),
			},
			closers: []reconcile.Event{ev("e1", reconcile.SessionEnded, 60)},
			want:    []string{"", ""},
		},
		{
			name: "missing closer does not steal from later opener",
			openers: []reconcile.Event{
				ev("s1", reconcile.SessionStarted, 0),
				ev("s2", reconcile.SessionStarted, 60),
				ev("s3", reconcile.SessionStarted, 120),
			},
			closers: []reconcile.Event{ev("e2", reconcile.SessionEnded, 90)},
			want:    []string{"", "e2", ""},
		},
		{
			name: "each opener takes its own closer",
			openers: []reconcile.Event{
				ev("s1", reconcile.SessionStarted, 0),
				ev("s2", reconcile.SessionStarted, 60),
			},
			closers: []reconcile.Event{
				ev("e1", reconcile.SessionEnded, 30),
				ev("e2", reconcile.SessionEnded, 90),
			},
			want: []string{"e1", "e2"},
		},
		{
			name:    "equal timestamp closers break ties by event ID",
			openers: []reconcile.Event{ev("s1", reconcile.SessionStarted, 0)},
			closers: []reconcile.Event{
				ev("e-b", reconcile.SessionEnded, 30),
				ev("e-a", reconcile.SessionEnded, 30),
			},
			want: []string{"e-a"},
		},
		{
			name: "equal timestamp openers give the first an empty window",
			openers: []reconcile.Event{
				ev("s-b", reconcile.SessionStarted, 0),
				ev("s-a", reconcile.SessionStarted, 0),
			},
			closers: []reconcile.Event{ev("e1", reconcile.SessionEnded, 30)},
			want:    []string{"", "e1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.Match(tt.openers, tt.closers)
			require.Len(t, got, len(tt.want))
			for i, p := range got {
				assert.Equal(t, tt.want[i], closerID(p), "opener %s", p.Opener.ID)
			}
		})
	}
}

func TestMatch_OrdersByOpenerTime(t *testing.T) {
	got := reconcile.Match([]reconcile.Event{
		ev("s3", reconcile.SessionStarted, 120),
		ev("s1", reconcile.SessionStarted, 0),
		ev("s2", reconcile.SessionStarted, 60),
	}, nil)

	require.Len(t, got, 3)
	assert.Equal(t, "s1", got[0].Opener.ID)
	assert.Equal(t, "s2", got[1].Opener.ID)
	assert.Equal(t, "s3", got[2].Opener.ID)

	require.NotNil(t, got[0].WindowEnd)
	assert.True(t, got[0].WindowEnd.Equal(at(60)))
	assert.Nil(t, got[2].WindowEnd, "last opener has an unbounded window")
}

func TestMatch_DoesNotMutateInput(t *testing.T) {
	openers := []reconcile.Event{
		ev("s2", reconcile.SessionStarted, 60),
		ev("s1", reconcile.SessionStarted, 0),
	}
	reconcile.Match(openers, nil)
	assert.Equal(t, "s2", openers[0].ID)
}

func TestPairing_FirstAfter(t *testing.T) {
	pairs := reconcile.Match([]reconcile.Event{
		ev("r1", reconcile.BookingRequested, 0),
		ev("r2", reconcile.BookingRequested, 100),
	}, nil)
	candidates := []reconcile.Event{
		ev("x1", reconcile.SessionStarted, 10),
		ev("x2", reconcile.SessionStarted, 40),
		ev("x3", reconcile.SessionStarted, 150),
	}

	got, ok := pairs[0].FirstAfter(at(20), candidates)
	require.True(t, ok)
	assert.Equal(t, "x2", got.ID)

	_, ok = pairs[0].FirstAfter(at(40), candidates)
	assert.False(t, ok, "x3 lies beyond the next request")

	got, ok = pairs[1].FirstAfter(at(100), candidates)
	require.True(t, ok)
	assert.Equal(t, "x3", got.ID)
}

func TestPartitionEvents(t *testing.T) {
	events := []reconcile.Event{
		evFor("b", "u2", "M01", reconcile.SessionStarted, 5),
		evFor("a", "u1", "M02", reconcile.SessionStarted, 0),
		evFor("c", "u1", "M01", reconcile.SessionEnded, 30),
		evFor("d", "u1", "M01", reconcile.SessionStarted, 0),
	}

	parts := reconcile.PartitionEvents(events)
	require.Len(t, parts, 3)
	assert.Equal(t, reconcile.PairKey{UserID: "u1", MentorID: "M01"}, parts[0].Key)
	assert.Equal(t, reconcile.PairKey{UserID: "u1", MentorID: "M02"}, parts[1].Key)
	assert.Equal(t, reconcile.PairKey{UserID: "u2", MentorID: "M01"}, parts[2].Key)

	require.Len(t, parts[0].Events, 2)
	assert.Equal(t, "d", parts[0].Events[0].ID)
	assert.Equal(t, "c", parts[0].Events[1].ID)

	assert.Len(t, parts[0].OfType(reconcile.SessionEnded), 1)
	assert.Len(t, parts[0].OfType(reconcile.SessionStarted, reconcile.SessionEnded), 2)
}
