package workflow

import (
	"github.com/unionhall/claimflow/internal/models"
)

// SignalPolicy maps each hazard signal to the target states it vetoes.
// A veto applies regardless of actor role or dwell time. Signals and
// targets not listed have no effect.
type SignalPolicy map[models.SignalKind][]models.ClaimState

// DefaultSignalPolicy returns the production hazard rules.
//
// An unresolved SLA breach blocks marking a claim resolved or closing
// it: the breach has to be acknowledged and cleared first. A legal
// hold freezes terminal dispositions entirely.
func DefaultSignalPolicy() SignalPolicy {
	return SignalPolicy{
		models.SignalSLABreach: {models.StateResolved, models.StateClosed},
		models.SignalLegalHold: {models.StateClosed, models.StateWithdrawn},
	}
}

// Blocks reports whether the given signal vetoes transitions into the
// target state.
func (p SignalPolicy) Blocks(kind models.SignalKind, to models.ClaimState) bool {
	for _, blocked := range p[kind] {
		if blocked == to {
			return true
		}
	}
	return false
}

// FirstBlocking returns the first active signal (in deterministic
// order) that vetoes the target state, if any.
func (p SignalPolicy) FirstBlocking(to models.ClaimState, signals SignalSet) (models.SignalKind, bool) {
	for _, kind := range signals.Sorted() {
		if p.Blocks(kind, to) {
			return kind, true
		}
	}
	return "", false
}
