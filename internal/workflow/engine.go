package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/unionhall/claimflow/internal/models"
)

// Engine evaluates transition requests against the policy tables. It
// holds no mutable state; construct once at startup and share freely.
type Engine struct {
	table   TransitionTable
	roles   RolePolicy
	dwell   DwellPolicy
	signals SignalPolicy
	sla     SLAPolicy
}

// NewEngine creates an Engine with the default production policies.
func NewEngine() *Engine {
	return NewEngineWithPolicies(
		DefaultTransitionTable(),
		DefaultRolePolicy(),
		DefaultDwellPolicy(),
		DefaultSignalPolicy(),
		DefaultSLAPolicy(),
	)
}

// NewEngineWithPolicies creates an Engine with explicit policy tables.
// The tables must not be mutated after the call.
func NewEngineWithPolicies(table TransitionTable, roles RolePolicy, dwell DwellPolicy, signals SignalPolicy, sla SLAPolicy) *Engine {
	return &Engine{
		table:   table,
		roles:   roles,
		dwell:   dwell,
		signals: signals,
		sla:     sla,
	}
}

// Evaluate decides a transition request. Check order is part of the
// contract: legality before role (an illegal transition is illegal for
// everyone and must not leak role thresholds), role before dwell and
// signals (an under-privileged actor learns nothing about hazard
// state). Every failure path is a typed rejection; Evaluate never
// panics on malformed input and unrecognized states fail closed.
func (e *Engine) Evaluate(req Request) Decision {
	from, to := req.From, req.To

	// Non-status updates are the caller's job to route around the
	// engine; a same-state request reaching us is rejected outright.
	if from == to {
		return reject(ReasonNoOp, fmt.Sprintf(
			"claim is already in status %s; no transition requested", from))
	}

	if !e.table.IsLegal(from, to) {
		return reject(ReasonIllegalTransition, illegalMessage(from, to, e.table.AllowedTargets(from)))
	}

	required := e.roles.RequiredLevel(from, to)
	if req.ActorRoleLevel < required {
		return reject(ReasonInsufficientRole, fmt.Sprintf(
			"actor %s is not authorized for transition %s -> %s. Required: %d, Current: %d",
			req.ActorID, from, to, required, req.ActorRoleLevel))
	}

	if minRequired, remaining, ok := e.dwell.CheckDwell(from, to, req.StatusEnteredAt, req.Now); !ok {
		return reject(ReasonMinimumDwellNotMet, fmt.Sprintf(
			"claim must remain in %s for a minimum duration before %s: %s required, %d hours remaining",
			from, to, formatDwell(minRequired), remainingHours(remaining)))
	}

	if kind, blocked := e.signals.FirstBlocking(to, req.Signals); blocked {
		return reject(ReasonCriticalSignalPresent, fmt.Sprintf(
			"transition to %s blocked by critical signal %s; resolve the signal before retrying",
			to, kind))
	}

	mutation := &Mutation{
		Status:          to,
		StatusEnteredAt: req.Now,
	}
	switch to {
	case models.StateResolved:
		ts := req.Now
		mutation.ResolvedAt = &ts
	case models.StateClosed:
		ts := req.Now
		mutation.ClosedAt = &ts
	}

	decision := Decision{Allowed: true, Mutation: mutation}
	if req.Priority.IsValid() && !req.StatusEnteredAt.IsZero() {
		decision.Warnings = e.sla.Warnings(from, req.Priority, req.StatusEnteredAt, req.Now)
	}
	return decision
}

// AllowedTargets returns the legal target set for a state regardless
// of actor role.
func (e *Engine) AllowedTargets(from models.ClaimState) []models.ClaimState {
	return e.table.AllowedTargets(from)
}

// AllowedTransitions returns the targets an actor at the given role
// level could actually reach from a state.
func (e *Engine) AllowedTransitions(from models.ClaimState, roleLevel int) []models.ClaimState {
	var out []models.ClaimState
	for _, to := range e.table.AllowedTargets(from) {
		if roleLevel >= e.roles.RequiredLevel(from, to) {
			out = append(out, to)
		}
	}
	return out
}

// Requirements describes what a transition demands, for introspection
// endpoints and operator tooling.
type Requirements struct {
	Legal         bool          `json:"legal"`
	RequiredLevel int           `json:"required_level"`
	MinimumDwell  time.Duration `json:"minimum_dwell"`
	// RequiresDocumentation marks transitions where closing paperwork
	// is expected. Informational only; the engine does not enforce it.
	RequiresDocumentation bool `json:"requires_documentation"`
}

// Requirements returns the requirements for a transition pair.
func (e *Engine) Requirements(from, to models.ClaimState) Requirements {
	if !e.table.IsLegal(from, to) {
		return Requirements{}
	}
	return Requirements{
		Legal:                 true,
		RequiredLevel:         e.roles.RequiredLevel(from, to),
		MinimumDwell:          e.dwell.MinimumDwell(from, to),
		RequiresDocumentation: documentationExpected(from, to),
	}
}

// SLA returns the engine's SLA policy, for the breach sweeper.
func (e *Engine) SLA() SLAPolicy {
	return e.sla
}

// documentationExpected marks the transitions where a written record
// of the outcome is expected alongside the status change.
func documentationExpected(from, to models.ClaimState) bool {
	switch {
	case from == models.StateInvestigating && to == models.StateResolved:
		return true
	case from == models.StateResolved && to == models.StateClosed:
		return true
	}
	return false
}

// illegalMessage enumerates the legal target set for the rejected
// state so the caller can self-correct without code access.
func illegalMessage(from, to models.ClaimState, targets []models.ClaimState) string {
	if len(targets) == 0 {
		return fmt.Sprintf(
			"invalid transition: %s -> %s. %s is a terminal state. Allowed transitions: none",
			from, to, from)
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = string(t)
	}
	return fmt.Sprintf(
		"invalid transition: %s -> %s. Allowed transitions: %s",
		from, to, strings.Join(names, ", "))
}
