package workflow

import (
	"github.com/unionhall/claimflow/internal/models"
)

// edge keys the per-pair policy tables.
type edge struct {
	From models.ClaimState
	To   models.ClaimState
}

// TransitionTable is the static adjacency of legal transitions. It is
// total over claim states: every state has an explicit entry, and the
// entry for a terminal state is empty. Any pair not listed is illegal.
type TransitionTable map[models.ClaimState][]models.ClaimState

// DefaultTransitionTable returns the production adjacency.
//
// Target order within each entry is the order surfaced in rejection
// messages, so keep forward progress first and terminal outcomes last.
func DefaultTransitionTable() TransitionTable {
	return TransitionTable{
		models.StateSubmitted: {
			models.StateUnderReview,
			models.StateAcknowledged,
			models.StateRejected,
		},
		models.StateAcknowledged: {
			models.StateUnderReview,
			models.StateRejected,
			models.StateWithdrawn,
		},
		models.StateUnderReview: {
			models.StateInvestigating,
			models.StatePendingResponse,
			models.StateNegotiating,
			models.StateResolved,
			models.StateRejected,
			models.StateWithdrawn,
		},
		models.StateInvestigating: {
			models.StateResolved,
			models.StateRejected,
			models.StateUnderReview,
			models.StateWithdrawn,
		},
		models.StatePendingResponse: {
			models.StateResolved,
			models.StateRejected,
			models.StateUnderReview,
			models.StateWithdrawn,
		},
		models.StateNegotiating: {
			models.StateResolved,
			models.StateRejected,
			models.StateUnderReview,
			models.StateWithdrawn,
		},
		// Cooling-off applies before closure; see the dwell policy.
		models.StateResolved: {
			models.StateClosed,
		},
		// Absorbing states.
		models.StateClosed:    {},
		models.StateWithdrawn: {},
		models.StateRejected:  {},
	}
}

// IsLegal reports whether from -> to is in the adjacency. Unknown
// states have no entry and therefore no legal targets.
func (t TransitionTable) IsLegal(from, to models.ClaimState) bool {
	for _, target := range t[from] {
		if target == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the legal target set for a state, in table
// order. The returned slice is a copy.
func (t TransitionTable) AllowedTargets(from models.ClaimState) []models.ClaimState {
	targets := t[from]
	out := make([]models.ClaimState, len(targets))
	copy(out, targets)
	return out
}
