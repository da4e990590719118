package reconcile

import "time"

// SessionRecord is the fact derived from one session_started event.
type SessionRecord struct {
	SessionID           string    `json:"session_id"`
	UserID              string    `json:"user_id"`
	MentorID            string    `json:"mentor_id"`
	StartedAt           time.Time `json:"started_at"`
	EndedAt             time.Time `json:"ended_at"`
	IsDurationEstimated bool      `json:"is_duration_estimated"`
	DurationMinutes     int       `json:"duration_minutes"`
}

// ReconcileSessions produces exactly one SessionRecord per session_started
// event in the partition.
//
// When no session_ended falls inside the start's window, the end is
// synthesized as started_at + defaultDuration and flagged as estimated.
func ReconcileSessions(p Partition, defaultDuration time.Duration) []SessionRecord {
	pairings := Match(p.OfType(SessionStarted), p.OfType(SessionEnded))

	records := make([]SessionRecord, 0, len(pairings))
	for _, pr := range pairings {
		rec := SessionRecord{
			SessionID: pr.Opener.ID,
			UserID:    pr.Opener.UserID,
			MentorID:  pr.Opener.MentorID,
			StartedAt: pr.Opener.Timestamp,
		}
		if pr.Matched() {
			rec.EndedAt = pr.Closer.Timestamp
		} else {
			rec.EndedAt = rec.StartedAt.Add(defaultDuration)
			rec.IsDurationEstimated = true
		}
		rec.DurationMinutes = int(rec.EndedAt.Sub(rec.StartedAt) / time.Minute)
		records = append(records, rec)
	}
	return records
}
