package dimension

import (
	"errors"
	"fmt"
	"time"
)

// TransitionKind tags the result of comparing an observation to history.
type TransitionKind int

// Transition kinds.
const (
	Unchanged TransitionKind = iota
	Opened
	Changed
)

func (k TransitionKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Opened:
		return "opened"
	case Changed:
		return "changed"
	}
	return fmt.Sprintf("TransitionKind(%d)", int(k))
}

// ErrDetectedBeforeValidFrom indicates a change detected earlier than the
// open version began, which would produce an inverted interval.
var ErrDetectedBeforeValidFrom = errors.New("change detected before the open version's valid_from")

// Transition is a pending change to the dimension.
type Transition struct {
	Kind TransitionKind
	// Close is the open version to end; set only for Changed.
	Close *Version
	// Open is the version to insert; set for Opened and Changed.
	Open *Version
	// At is when the change was detected.
	At time.Time
}

// Diff compares the open version of a mentor (nil when the mentor is new)
// with the latest observation. Only the tier is tracked: a rate change alone
// is Unchanged. The returned Open version has no Key; the store assigns it.
func Diff(current *Version, observed Snapshot, detectedAt time.Time) (Transition, error) {
	detectedAt = detectedAt.UTC()
	open := &Version{
		MentorID:   observed.MentorID,
		Tier:       observed.Tier,
		HourlyRate: observed.HourlyRate,
		ValidFrom:  detectedAt,
	}

	switch {
	case current == nil:
		return Transition{Kind: Opened, Open: open, At: detectedAt}, nil
	case current.Tier == observed.Tier:
		return Transition{Kind: Unchanged, At: detectedAt}, nil
	case detectedAt.Before(current.ValidFrom):
		return Transition{}, fmt.Errorf("%w: mentor %s open since %s, detected %s",
			ErrDetectedBeforeValidFrom, current.MentorID,
			current.ValidFrom.Format(time.RFC3339), detectedAt.Format(time.RFC3339))
	}

	closed := *current
	end := detectedAt
	closed.ValidTo = &end
	return Transition{Kind: Changed, Close: &closed, Open: open, At: detectedAt}, nil
}
