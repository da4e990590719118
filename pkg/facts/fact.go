// Package facts turns reconciled records into warehouse facts.
//
// Every fact carries a content-derived identifier, so offering the same
// record twice never produces a second row: re-running the pipeline over the
// same events is a no-op.
package facts

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

// Kind distinguishes the fact tables.
type Kind string

// Fact kinds.
const (
	KindSession Kind = "session"
	KindBooking Kind = "booking"
)

// Kinds lists every fact kind.
var Kinds = []Kind{KindSession, KindBooking}

// ErrInvalidFact indicates a fact whose kind and payload disagree.
var ErrInvalidFact = errors.New("invalid fact")

// separator cannot occur in IDs or RFC 3339 timestamps, so the hash input is
// unambiguous.
const separator = "\x1f"

// Identifier derives the stable ID of a fact from its kind, pair key, and
// opening timestamp.
func Identifier(kind Kind, key reconcile.PairKey, openedAt time.Time) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte(separator))
	h.Write([]byte(key.UserID))
	h.Write([]byte(separator))
	h.Write([]byte(key.MentorID))
	h.Write([]byte(separator))
	h.Write([]byte(openedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}

// Fact is one row destined for a fact table. Exactly one of Session and
// Booking is set, according to Kind.
type Fact struct {
	ID      string
	Kind    Kind
	Session *reconcile.SessionRecord
	Booking *reconcile.BookingRecord
}

// FromSession wraps a session record.
func FromSession(rec reconcile.SessionRecord) Fact {
	key := reconcile.PairKey{UserID: rec.UserID, MentorID: rec.MentorID}
	return Fact{
		ID:      Identifier(KindSession, key, rec.StartedAt),
		Kind:    KindSession,
		Session: &rec,
	}
}

// FromBooking wraps a booking record.
func FromBooking(rec reconcile.BookingRecord) Fact {
	key := reconcile.PairKey{UserID: rec.UserID, MentorID: rec.MentorID}
	return Fact{
		ID:      Identifier(KindBooking, key, rec.RequestedAt),
		Kind:    KindBooking,
		Booking: &rec,
	}
}

// SourceID is the ID of the event that opened the record.
func (f Fact) SourceID() string {
	switch {
	case f.Session != nil:
		return f.Session.SessionID
	case f.Booking != nil:
		return f.Booking.BookingID
	}
	return ""
}

// Validate checks that the payload matches the kind.
func (f Fact) Validate() error {
	switch {
	case f.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidFact)
	case f.Kind == KindSession && f.Session != nil && f.Booking == nil:
		return nil
	case f.Kind == KindBooking && f.Booking != nil && f.Session == nil:
		return nil
	}
	return fmt.Errorf("%w: kind %q does not match payload", ErrInvalidFact, f.Kind)
}
