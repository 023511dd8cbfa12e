package workflow

import (
	"fmt"
	"time"

	"github.com/unionhall/claimflow/internal/models"
)

// SLAPolicy defines the service-level window a claim may spend in a
// single state before it is considered overdue. The window scales by
// claim priority. SLA status never vetoes a transition; it surfaces as
// warnings on accepted decisions and drives the breach sweeper.
type SLAPolicy struct {
	// BaseWindow is the per-state window for medium priority.
	BaseWindow time.Duration
	// AtRiskFraction of the window at which an "at risk" warning fires.
	AtRiskFraction float64
}

// DefaultSLAPolicy returns the production SLA settings: ten days per
// state at medium priority, warning at 80%.
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		BaseWindow:     10 * 24 * time.Hour,
		AtRiskFraction: 0.8,
	}
}

// Window returns the SLA window for the given priority.
func (p SLAPolicy) Window(priority models.Priority) time.Duration {
	mult := priority.SLAMultiplier()
	return time.Duration(float64(p.BaseWindow) * mult)
}

// Deadline returns when a claim that entered its state at enteredAt
// breaches the SLA.
func (p SLAPolicy) Deadline(priority models.Priority, enteredAt time.Time) time.Time {
	return enteredAt.Add(p.Window(priority))
}

// IsBreached reports whether the elapsed dwell exceeds the window.
func (p SLAPolicy) IsBreached(priority models.Priority, enteredAt, now time.Time) bool {
	return now.Sub(enteredAt) > p.Window(priority)
}

// Warnings returns SLA advisories for a claim that has dwelt in state
// since enteredAt, or nil if it is comfortably within its window.
func (p SLAPolicy) Warnings(state models.ClaimState, priority models.Priority, enteredAt, now time.Time) []string {
	window := p.Window(priority)
	if window <= 0 {
		return nil
	}
	elapsed := now.Sub(enteredAt)
	days := func(d time.Duration) float64 { return d.Hours() / 24 }

	if elapsed > window {
		return []string{fmt.Sprintf(
			"SLA BREACH: %.1f days in %s exceeds the %.1f-day window for %s priority",
			days(elapsed), state, days(window), priority,
		)}
	}
	if float64(elapsed) >= p.AtRiskFraction*float64(window) {
		return []string{fmt.Sprintf(
			"SLA AT RISK: %.1f days in %s approaching the %.1f-day window for %s priority",
			days(elapsed), state, days(window), priority,
		)}
	}
	return nil
}
