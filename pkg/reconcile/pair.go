package reconcile

import (
	"sort"
	"time"
)

// Pairing is one opener together with the closer matched inside its window.
//
// The window of an opener is the open interval (opener.Timestamp, WindowEnd),
// where WindowEnd is the timestamp of the next opener of the same type in the
// same partition. The last opener has an unbounded window.
type Pairing struct {
	Opener Event
	// Closer is nil when no closer fell inside the window.
	Closer *Event
	// WindowEnd is nil for the last opener of the partition.
	WindowEnd *time.Time
}

// Matched reports whether a closer was found.
func (p Pairing) Matched() bool {
	return p.Closer != nil
}

// InWindow reports whether t lies strictly after after and strictly before
// the window end.
func (p Pairing) InWindow(after, t time.Time) bool {
	if !t.After(after) {
		return false
	}
	return p.WindowEnd == nil || t.Before(*p.WindowEnd)
}

// FirstAfter returns the earliest candidate strictly after the given instant
// that is still inside the window. candidates must be sorted with SortEvents.
func (p Pairing) FirstAfter(after time.Time, candidates []Event) (Event, bool) {
	i := sort.Search(len(candidates), func(k int) bool {
		return candidates[k].Timestamp.After(after)
	})
	if i < len(candidates) && p.InWindow(after, candidates[i].Timestamp) {
		return candidates[i], true
	}
	return Event{}, false
}

// Match pairs each opener with at most one closer.
//
// For an opener O followed by opener O' (same partition, same type), the
// closer chosen is the earliest C with O.ts < C.ts < O'.ts. Equal timestamps
// among closers are broken by event ID. Because every window ends at the next
// opener, a missing closer leaves exactly one opener unmatched and can never
// shift a closer onto a later opener.
//
// Both slices must come from a single partition. Their order does not matter.
// The result has one Pairing per opener, ordered by (timestamp, event ID).
func Match(openers, closers []Event) []Pairing {
	ops := sortedCopy(openers)
	cls := sortedCopy(closers)

	pairings := make([]Pairing, len(ops))
	for i, op := range ops {
		p := Pairing{Opener: op}
		if i+1 < len(ops) {
			end := ops[i+1].Timestamp
			p.WindowEnd = &end
		}
		if c, ok := p.FirstAfter(op.Timestamp, cls); ok {
			p.Closer = &c
		}
		pairings[i] = p
	}
	return pairings
}
