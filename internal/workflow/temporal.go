package workflow

import (
	"fmt"
	"time"

	"github.com/unionhall/claimflow/internal/models"
)

// DwellPolicy maps transitions to the minimum time a claim must have
// held its current status before the transition becomes legal.
// Transitions without an entry have zero minimum dwell.
type DwellPolicy map[edge]time.Duration

// DefaultDwellPolicy returns the production dwell rules.
//
// The cooling-off window before closing a resolved claim is the load-
// bearing rule: it gives the member time to contest the resolution.
// The shorter review/investigation minimums prevent rubber-stamping.
func DefaultDwellPolicy() DwellPolicy {
	return DwellPolicy{
		{models.StateUnderReview, models.StateInvestigating}: 24 * time.Hour,
		{models.StateInvestigating, models.StateResolved}:    72 * time.Hour,
		{models.StateResolved, models.StateClosed}:           7 * 24 * time.Hour,
	}
}

// MinimumDwell returns the required dwell for a transition, zero if none.
func (p DwellPolicy) MinimumDwell(from, to models.ClaimState) time.Duration {
	return p[edge{from, to}]
}

// CheckDwell reports whether the claim has held its current status
// long enough for the transition. Returns the required duration and
// the shortfall when the check fails.
func (p DwellPolicy) CheckDwell(from, to models.ClaimState, statusEnteredAt, now time.Time) (required, remaining time.Duration, ok bool) {
	required = p.MinimumDwell(from, to)
	if required == 0 {
		return 0, 0, true
	}
	elapsed := now.Sub(statusEnteredAt)
	if elapsed >= required {
		return required, 0, true
	}
	return required, required - elapsed, false
}

// formatDwell renders a duration the way policy documents state it:
// whole days as "N days", otherwise whole hours as "N hours".
func formatDwell(d time.Duration) string {
	if d >= 48*time.Hour && d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	}
	hours := int(d / time.Hour)
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

// remainingHours rounds a shortfall up to whole hours for messages.
func remainingHours(d time.Duration) int {
	hours := int(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}
