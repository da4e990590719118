// Package dimension keeps the slowly-changing history of mentor tiers.
//
// Each mentor has at most one open version (ValidTo == nil). A tier change
// closes the open version at the detection time and opens a new one in the
// same transaction, so history never has gaps or overlaps.
package dimension

import (
	"sort"
	"strings"
	"time"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
)

// Snapshot is one observation of a mentor's attributes.
type Snapshot struct {
	MentorID   string  `json:"mentor_id" validate:"required"`
	Tier       string  `json:"tier" validate:"required"`
	HourlyRate float64 `json:"hourly_rate" validate:"gte=0"`
}

// Validate rejects snapshots without an identity or tier.
func (s Snapshot) Validate() error {
	switch {
	case strings.TrimSpace(s.MentorID) == "":
		return perrors.Integrity("mentors", "", "mentor_id", "missing")
	case strings.TrimSpace(s.Tier) == "":
		return perrors.Integrity("mentors", s.MentorID, "tier", "missing")
	}
	return nil
}

// Latest keeps the last observation of each mentor in input order and
// returns them sorted by mentor ID.
func Latest(observations []Snapshot) []Snapshot {
	byID := make(map[string]Snapshot, len(observations))
	for _, o := range observations {
		byID[o.MentorID] = o
	}
	out := make([]Snapshot, 0, len(byID))
	for _, o := range byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MentorID < out[j].MentorID
	})
	return out
}

// Version is one row of the mentor dimension.
type Version struct {
	Key        string
	MentorID   string
	Tier       string
	HourlyRate float64
	ValidFrom  time.Time
	// ValidTo is nil for the open version.
	ValidTo *time.Time
}

// IsCurrent reports whether the version is still open.
func (v Version) IsCurrent() bool {
	return v.ValidTo == nil
}

// CurrentTiers returns the distinct tiers of the given open versions, sorted.
func CurrentTiers(current map[string]Version) []string {
	seen := make(map[string]struct{})
	for _, v := range current {
		if v.IsCurrent() {
			seen[v.Tier] = struct{}{}
		}
	}
	tiers := make([]string, 0, len(seen))
	for t := range seen {
		tiers = append(tiers, t)
	}
	sort.Strings(tiers)
	return tiers
}
