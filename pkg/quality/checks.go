package quality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

// NegativeDurations fails when any session ends before it starts.
func NegativeDurations(sessions []reconcile.SessionRecord) Result {
	var ids []string
	for _, s := range sessions {
		if s.DurationMinutes < 0 || s.EndedAt.Before(s.StartedAt) {
			ids = append(ids, s.SessionID)
		}
	}
	if len(ids) > 0 {
		return Result{CheckNegativeDurations, StatusFail,
			fmt.Sprintf("%d session(s) end before they start: %s", len(ids), list(ids))}
	}
	return Result{CheckNegativeDurations, StatusPass, "no negative session durations"}
}

// LongSessions warns about sessions longer than maxMinutes. A non-positive
// limit skips the check.
func LongSessions(sessions []reconcile.SessionRecord, maxMinutes int) Result {
	if maxMinutes <= 0 {
		return Result{CheckLongSessions, StatusSkip, "no duration limit configured"}
	}
	n := 0
	for _, s := range sessions {
		if s.DurationMinutes > maxMinutes {
			n++
		}
	}
	if n > 0 {
		return Result{CheckLongSessions, StatusWarn,
			fmt.Sprintf("%d session(s) exceed %d min, likely clock drift", n, maxMinutes)}
	}
	return Result{CheckLongSessions, StatusPass, fmt.Sprintf("no session exceeds %d min", maxMinutes)}
}

// OrphanRate warns when the share of pending booking requests is above
// maxRate. It is skipped when there are no bookings.
func OrphanRate(bookings []reconcile.BookingRecord, maxRate float64) Result {
	if len(bookings) == 0 {
		return Result{CheckOrphanRate, StatusSkip, "no bookings"}
	}
	orphans := 0
	for _, b := range bookings {
		if b.IsOrphanRequest {
			orphans++
		}
	}
	rate := float64(orphans) / float64(len(bookings))
	detail := fmt.Sprintf("%d/%d booking requests (%.1f%%) have no outcome, threshold %.1f%%",
		orphans, len(bookings), rate*100, maxRate*100)
	if rate > maxRate {
		return Result{CheckOrphanRate, StatusWarn, detail}
	}
	return Result{CheckOrphanRate, StatusPass, detail}
}

// TierGroups fails when a configured tier is absent from the current mentor
// dimension, which usually means a typo in the configuration.
func TierGroups(current, groupA, groupB []string) Result {
	configured := append(append([]string(nil), groupA...), groupB...)
	if len(configured) == 0 {
		return Result{CheckTierGroups, StatusSkip, "no tier groups configured"}
	}
	have := make(map[string]bool, len(current))
	for _, t := range current {
		have[t] = true
	}
	var missing []string
	for _, t := range configured {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		available := append([]string(nil), current...)
		sort.Strings(available)
		return Result{CheckTierGroups, StatusFail,
			fmt.Sprintf("configured tier(s) %s not found among current mentor tiers (available: %s)",
				list(missing), list(available))}
	}
	return Result{CheckTierGroups, StatusPass, "all configured tiers exist"}
}

// UnknownTiers warns when the mentor dimension carries a tier outside the
// known list. An empty list skips the check.
func UnknownTiers(current, known []string) Result {
	if len(known) == 0 {
		return Result{CheckUnknownTiers, StatusSkip, "no known tiers configured"}
	}
	ok := make(map[string]bool, len(known))
	for _, t := range known {
		ok[t] = true
	}
	var unknown []string
	for _, t := range current {
		if !ok[t] {
			unknown = append(unknown, t)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Result{CheckUnknownTiers, StatusWarn,
			fmt.Sprintf("mentor tier(s) %s are not in the known tiers %s", list(unknown), list(known))}
	}
	return Result{CheckUnknownTiers, StatusPass, "every mentor tier is known"}
}

// OrphanInvariant fails when a booking is flagged orphan without being
// pending, or pending without being flagged.
func OrphanInvariant(bookings []reconcile.BookingRecord) Result {
	var ids []string
	for _, b := range bookings {
		if b.IsOrphanRequest != (b.OutcomeStatus == reconcile.OutcomePending) {
			ids = append(ids, b.BookingID)
		}
	}
	if len(ids) > 0 {
		return Result{CheckOrphanInvariant, StatusFail,
			fmt.Sprintf("%d booking(s) with inconsistent orphan flag: %s", len(ids), list(ids))}
	}
	return Result{CheckOrphanInvariant, StatusPass, "orphan flags match pending outcomes"}
}

const maxListed = 10

func list(items []string) string {
	if len(items) > maxListed {
		return fmt.Sprintf("[%s, ... %d more]", strings.Join(items[:maxListed], ", "), len(items)-maxListed)
	}
	return "[" + strings.Join(items, ", ") + "]"
}
