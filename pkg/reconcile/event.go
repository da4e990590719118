package reconcile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
)

// EventType is the lifecycle step an event records.
type EventType string

// Known event types.
const (
	SessionStarted   EventType = "session_started"
	SessionEnded     EventType = "session_ended"
	BookingRequested EventType = "booking_requested"
	BookingConfirmed EventType = "booking_confirmed"
	BookingCancelled EventType = "booking_cancelled"
)

// EventTypes lists every known event type.
var EventTypes = []EventType{
	SessionStarted,
	SessionEnded,
	BookingRequested,
	BookingConfirmed,
	BookingCancelled,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case SessionStarted, SessionEnded, BookingRequested, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

// ParseEventType normalises s (trimmed, lower-cased) and reports whether it is known.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Event is one immutable entry of the raw event log.
type Event struct {
	ID        string          `json:"event_id"`
	UserID    string          `json:"user_id"`
	MentorID  string          `json:"mentor_id"`
	Type      EventType       `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Key returns the partition the event is paired within.
func (e Event) Key() PairKey {
	return PairKey{UserID: e.UserID, MentorID: e.MentorID}
}

// Validate checks the fields the reconcilers depend on.
// A failure is a *errors.DataIntegrityError; nothing is coerced.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.UserID) == "":
		return perrors.Integrity("events", e.ID, "user_id", "missing")
	case strings.TrimSpace(e.MentorID) == "":
		return perrors.Integrity("events", e.ID, "mentor_id", "missing")
	case e.Type == "":
		return perrors.Integrity("events", e.ID, "event_type", "missing")
	case !e.Type.Valid():
		return perrors.Integrity("events", e.ID, "event_type", fmt.Sprintf("unknown value %q", e.Type))
	case e.Timestamp.IsZero():
		return perrors.Integrity("events", e.ID, "timestamp", "missing")
	}
	return nil
}

// PairKey is the (user, mentor) partition within which pairing is evaluated.
type PairKey struct {
	UserID   string
	MentorID string
}

// String returns "user/mentor".
func (k PairKey) String() string {
	return k.UserID + "/" + k.MentorID
}

// Less orders keys by user, then mentor.
func (k PairKey) Less(o PairKey) bool {
	if k.UserID != o.UserID {
		return k.UserID < o.UserID
	}
	return k.MentorID < o.MentorID
}

// eventLess is the logical order: timestamp, then event ID as tie-break.
func eventLess(a, b Event) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

// SortEvents orders events in place by (timestamp, event ID).
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return eventLess(events[i], events[j])
	})
}

// sortedCopy returns a sorted copy, leaving the caller's slice untouched.
func sortedCopy(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	SortEvents(out)
	return out
}
