// Package models defines the domain models for claimflow.
package models

// ClaimState represents the state of a claim in its lifecycle.
// The lifecycle is governed exclusively by the workflow engine:
// - submitted: filed by a member, not yet triaged
// - acknowledged: receipt confirmed, awaiting review assignment
// - under_review: being assessed by a steward
// - investigating: active fact-finding
// - pending_response: waiting on the employer or member
// - negotiating: remedy under negotiation
// - resolved: remedy agreed, in the cooling-off window
// - closed/withdrawn/rejected: terminal states
type ClaimState string

const (
	StateSubmitted       ClaimState = "submitted"
	StateAcknowledged    ClaimState = "acknowledged"
	StateUnderReview     ClaimState = "under_review"
	StateInvestigating   ClaimState = "investigating"
	StatePendingResponse ClaimState = "pending_response"
	StateNegotiating     ClaimState = "negotiating"
	StateResolved        ClaimState = "resolved"
	StateClosed          ClaimState = "closed"
	StateWithdrawn       ClaimState = "withdrawn"
	StateRejected        ClaimState = "rejected"
)

// AllClaimStates lists every valid claim state.
var AllClaimStates = []ClaimState{
	StateSubmitted, StateAcknowledged, StateUnderReview, StateInvestigating,
	StatePendingResponse, StateNegotiating, StateResolved,
	StateClosed, StateWithdrawn, StateRejected,
}

// IsValid returns true if the state is a valid claim state.
func (s ClaimState) IsValid() bool {
	switch s {
	case StateSubmitted, StateAcknowledged, StateUnderReview, StateInvestigating,
		StatePendingResponse, StateNegotiating, StateResolved,
		StateClosed, StateWithdrawn, StateRejected:
		return true
	}
	return false
}

// IsTerminal returns true if the state is absorbing: no further
// transitions are legal once a claim reaches it.
func (s ClaimState) IsTerminal() bool {
	return s == StateClosed || s == StateWithdrawn || s == StateRejected
}

// IsOpen returns true if the claim is still in an active lifecycle state.
func (s ClaimState) IsOpen() bool {
	return s.IsValid() && !s.IsTerminal()
}

// Priority represents the urgency of a claim. It scales SLA deadlines
// but never changes which transitions are legal.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid returns true if the priority is a valid claim priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// SLAMultiplier returns the factor applied to the base SLA window
// for claims of this priority.
func (p Priority) SLAMultiplier() float64 {
	switch p {
	case PriorityUrgent:
		return 0.5
	case PriorityHigh:
		return 0.75
	case PriorityLow:
		return 1.5
	default:
		return 1.0
	}
}

// SignalKind identifies an externally computed hazard flag that can veto
// otherwise-legal transitions.
type SignalKind string

const (
	SignalSLABreach SignalKind = "SLA_BREACH"
	SignalLegalHold SignalKind = "LEGAL_HOLD"
)

// IsValid returns true if the signal kind is known.
func (k SignalKind) IsValid() bool {
	switch k {
	case SignalSLABreach, SignalLegalHold:
		return true
	}
	return false
}

// Severity represents how serious a raised signal is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// IsValid returns true if the severity is valid.
func (s Severity) IsValid() bool {
	return s == SeverityCritical || s == SeverityWarning
}

// ActorType represents who attempted a transition in the activity log.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// IsValid returns true if the actor type is valid.
func (at ActorType) IsValid() bool {
	return at == ActorTypeUser || at == ActorTypeSystem
}

// Action represents the type of action logged in the activity log.
type Action string

const (
	ActionFiled          Action = "filed"
	ActionStatusChanged  Action = "status_changed"
	ActionStatusDenied   Action = "status_denied"
	ActionSignalRaised   Action = "signal_raised"
	ActionSignalResolved Action = "signal_resolved"
	ActionFieldChanged   Action = "field_changed"
	ActionComment        Action = "comment"
)

// IsValid returns true if the action is valid.
func (a Action) IsValid() bool {
	switch a {
	case ActionFiled, ActionStatusChanged, ActionStatusDenied,
		ActionSignalRaised, ActionSignalResolved, ActionFieldChanged, ActionComment:
		return true
	}
	return false
}
