package workflow

import (
	"github.com/unionhall/claimflow/internal/models"
)

// Role levels used by the default policy. These mirror the numbering
// of the surrounding application's role hierarchy; treat them as named
// policy entries, not magic numbers.
const (
	LevelMember  = 10
	LevelSteward = 40
	LevelOfficer = 60
	LevelAdmin   = 90
	LevelSystem  = 100
)

// RolePolicy maps each legal transition to the minimum actor role
// level required to perform it. Pairs without an entry require
// LevelSystem: a legal transition missing from the policy fails closed
// rather than open.
type RolePolicy map[edge]int

// DefaultRolePolicy returns the production role thresholds.
//
// Terminal dispositions (rejecting a claim, closing it out) are
// admin-only. Moving a claim toward resolution is officer work.
// Routine triage and review progress is steward work. Withdrawal is
// member-initiated and gated only on being a member.
func DefaultRolePolicy() RolePolicy {
	p := RolePolicy{
		// Triage
		{models.StateSubmitted, models.StateUnderReview}:    LevelSteward,
		{models.StateSubmitted, models.StateAcknowledged}:   LevelSteward,
		{models.StateAcknowledged, models.StateUnderReview}: LevelSteward,

		// Review progress
		{models.StateUnderReview, models.StateInvestigating}:   LevelSteward,
		{models.StateUnderReview, models.StatePendingResponse}: LevelSteward,
		{models.StateUnderReview, models.StateNegotiating}:     LevelSteward,

		// Fall back to review
		{models.StateInvestigating, models.StateUnderReview}:   LevelSteward,
		{models.StatePendingResponse, models.StateUnderReview}: LevelSteward,
		{models.StateNegotiating, models.StateUnderReview}:     LevelSteward,

		// Resolution
		{models.StateUnderReview, models.StateResolved}:     LevelOfficer,
		{models.StateInvestigating, models.StateResolved}:   LevelOfficer,
		{models.StatePendingResponse, models.StateResolved}: LevelOfficer,
		{models.StateNegotiating, models.StateResolved}:     LevelOfficer,

		// Terminal dispositions
		{models.StateSubmitted, models.StateRejected}:       LevelAdmin,
		{models.StateAcknowledged, models.StateRejected}:    LevelAdmin,
		{models.StateUnderReview, models.StateRejected}:     LevelAdmin,
		{models.StateInvestigating, models.StateRejected}:   LevelAdmin,
		{models.StatePendingResponse, models.StateRejected}: LevelAdmin,
		{models.StateNegotiating, models.StateRejected}:     LevelAdmin,
		{models.StateResolved, models.StateClosed}:          LevelAdmin,

		// Member-initiated withdrawal
		{models.StateAcknowledged, models.StateWithdrawn}:    LevelMember,
		{models.StateUnderReview, models.StateWithdrawn}:     LevelMember,
		{models.StateInvestigating, models.StateWithdrawn}:   LevelMember,
		{models.StatePendingResponse, models.StateWithdrawn}: LevelMember,
		{models.StateNegotiating, models.StateWithdrawn}:     LevelMember,
	}
	return p
}

// RequiredLevel returns the minimum role level for a transition.
// Unlisted pairs fail closed at LevelSystem.
func (p RolePolicy) RequiredLevel(from, to models.ClaimState) int {
	if level, ok := p[edge{from, to}]; ok {
		return level
	}
	return LevelSystem
}
