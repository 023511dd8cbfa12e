// Package workflow implements the claim lifecycle state machine for
// claimflow. It is the only component permitted to authorize a status
// change: every mutation path (API, CLI, bulk, background sweeps) must
// obtain an accepted Decision from the Engine before writing.
//
// The engine is a pure function over its inputs. Policy tables are
// built once and never mutated, so a single Engine is safe for
// concurrent use without locking.
package workflow

import (
	"sort"
	"time"

	"github.com/unionhall/claimflow/internal/models"
)

// ReasonCode is a stable, machine-readable rejection reason.
type ReasonCode string

const (
	ReasonNoOp                  ReasonCode = "NO_OP"
	ReasonIllegalTransition     ReasonCode = "ILLEGAL_TRANSITION"
	ReasonInsufficientRole      ReasonCode = "INSUFFICIENT_ROLE"
	ReasonMinimumDwellNotMet    ReasonCode = "MINIMUM_DWELL_NOT_MET"
	ReasonCriticalSignalPresent ReasonCode = "CRITICAL_SIGNAL_PRESENT"
)

// SignalSet is the set of hazard signals active on a claim at decision time.
type SignalSet map[models.SignalKind]struct{}

// NewSignalSet builds a SignalSet from kinds.
func NewSignalSet(kinds ...models.SignalKind) SignalSet {
	set := make(SignalSet, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

// Contains reports whether the set holds the given kind.
func (s SignalSet) Contains(kind models.SignalKind) bool {
	_, ok := s[kind]
	return ok
}

// Sorted returns the kinds in deterministic order.
func (s SignalSet) Sorted() []models.SignalKind {
	kinds := make([]models.SignalKind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Request describes a proposed status transition. From must be the
// claim's current persisted status, read fresh in the same logical
// transaction that will apply the mutation; adjacency is keyed on it,
// never on client-declared state.
type Request struct {
	ClaimKey        string
	From            models.ClaimState
	To              models.ClaimState
	ActorID         string
	ActorRoleLevel  int
	Priority        models.Priority
	StatusEnteredAt time.Time
	Now             time.Time
	Signals         SignalSet
}

// Mutation is the state-change instruction produced by an accepted
// decision. It is the only value the store's status writer accepts.
type Mutation struct {
	Status          models.ClaimState
	StatusEnteredAt time.Time
	// ResolvedAt/ClosedAt are set when entering the respective state and
	// left nil otherwise; the store must never clear an existing value.
	ResolvedAt *time.Time
	ClosedAt   *time.Time
}

// Decision is the outcome of evaluating a Request. Exactly one of
// Mutation (allowed) or Code+Message (rejected) is meaningful.
type Decision struct {
	Allowed  bool
	Code     ReasonCode
	Message  string
	Mutation *Mutation
	// Warnings carry non-blocking advisories (SLA compliance) on
	// accepted decisions.
	Warnings []string
}

// reject builds a rejected decision.
func reject(code ReasonCode, message string) Decision {
	return Decision{Allowed: false, Code: code, Message: message}
}
