package reconcile

import "time"

// OutcomeStatus classifies a booking request.
type OutcomeStatus string

// Booking outcomes.
const (
	OutcomeConfirmedAttended OutcomeStatus = "confirmed_attended"
	OutcomeNoShow            OutcomeStatus = "no_show"
	OutcomeCancelled         OutcomeStatus = "cancelled"
	OutcomePending           OutcomeStatus = "pending"
)

// Valid reports whether s is a known outcome.
func (s OutcomeStatus) Valid() bool {
	switch s {
	case OutcomeConfirmedAttended, OutcomeNoShow, OutcomeCancelled, OutcomePending:
		return true
	}
	return false
}

// BookingRecord is the fact derived from one booking_requested event.
//
// IsOrphanRequest is true exactly when OutcomeStatus is pending.
type BookingRecord struct {
	BookingID       string        `json:"booking_id"`
	UserID          string        `json:"user_id"`
	MentorID        string        `json:"mentor_id"`
	RequestedAt     time.Time     `json:"requested_at"`
	OutcomeAt       *time.Time    `json:"outcome_at,omitempty"`
	OutcomeStatus   OutcomeStatus `json:"outcome_status"`
	FirstSessionAt  *time.Time    `json:"first_session_at,omitempty"`
	IsOrphanRequest bool          `json:"is_orphan_request"`
}

// ReconcileBookings produces exactly one BookingRecord per booking_requested
// event in the partition.
//
// The outcome is the earliest confirmed/cancelled event inside the request's
// window. For a confirmation, attendance is the earliest session_started
// strictly after the confirmation and still before the next request.
func ReconcileBookings(p Partition) []BookingRecord {
	pairings := Match(
		p.OfType(BookingRequested),
		p.OfType(BookingConfirmed, BookingCancelled),
	)
	starts := p.OfType(SessionStarted)

	records := make([]BookingRecord, 0, len(pairings))
	for _, pr := range pairings {
		rec := BookingRecord{
			BookingID:   pr.Opener.ID,
			UserID:      pr.Opener.UserID,
			MentorID:    pr.Opener.MentorID,
			RequestedAt: pr.Opener.Timestamp,
		}

		switch {
		case !pr.Matched():
			rec.OutcomeStatus = OutcomePending
			rec.IsOrphanRequest = true

		case pr.Closer.Type == BookingCancelled:
			at := pr.Closer.Timestamp
			rec.OutcomeAt = &at
			rec.OutcomeStatus = OutcomeCancelled

		default:
			at := pr.Closer.Timestamp
			rec.OutcomeAt = &at
			if s, ok := pr.FirstAfter(at, starts); ok {
				first := s.Timestamp
				rec.FirstSessionAt = &first
				rec.OutcomeStatus = OutcomeConfirmedAttended
			} else {
				rec.OutcomeStatus = OutcomeNoShow
			}
		}
		records = append(records, rec)
	}
	return records
}
