// Package service provides business logic services for claimflow.
package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/errors"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/workflow"
)

// maxTransitionRetries bounds how many times a transition is re-evaluated
// after losing the status compare-and-swap to a concurrent writer.
const maxTransitionRetries = 3

// Actor identifies who is attempting an operation.
type Actor struct {
	ID        string
	RoleLevel int
	Type      models.ActorType
}

// SystemActor is the actor used by background processes.
var SystemActor = Actor{ID: "system", RoleLevel: workflow.LevelSystem, Type: models.ActorTypeSystem}

// ClaimService coordinates claims, signals, the workflow engine, and the
// activity log. It is the only component that writes claim status; every
// status mutation path (API, CLI, bulk, sweeps) funnels through Transition.
type ClaimService struct {
	db           *sql.DB
	orgRepo      *db.OrgRepo
	claimRepo    *db.ClaimRepo
	signalRepo   *db.SignalRepo
	activityRepo *db.ActivityRepo
	engine       *workflow.Engine

	// beforeApply, when set, runs between evaluation and the status swap.
	// Tests use it to interleave a concurrent writer.
	beforeApply func(claim *models.Claim, attempt int)
}

// NewClaimService creates a new ClaimService with all required dependencies.
func NewClaimService(database *sql.DB) *ClaimService {
	return &ClaimService{
		db:           database,
		orgRepo:      db.NewOrgRepo(database),
		claimRepo:    db.NewClaimRepo(database),
		signalRepo:   db.NewSignalRepo(database),
		activityRepo: db.NewActivityRepo(database),
		engine:       workflow.NewEngine(),
	}
}

// Engine exposes the workflow engine for introspection callers.
func (s *ClaimService) Engine() *workflow.Engine {
	return s.engine
}

// TransitionResult is the outcome of an accepted transition.
type TransitionResult struct {
	Claim    *models.Claim `json:"claim"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Warnings []string      `json:"warnings,omitempty"`
}

// File creates a new claim in submitted and logs the filing.
func (s *ClaimService) File(orgKey, title, claimant string, priority models.Priority, actor Actor) (*models.Claim, error) {
	org, err := s.orgRepo.GetByKey(orgKey)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to look up organization")
	}
	if org == nil {
		return nil, errors.NotFound("organization not found: %s", models.NormalizeOrgKey(orgKey))
	}

	claim := &models.Claim{
		OrganizationID: org.ID,
		Title:          title,
		Claimant:       claimant,
		Priority:       priority,
	}
	if claim.Priority == "" {
		claim.Priority = models.PriorityMedium
	}
	if !claim.Priority.IsValid() {
		return nil, errors.InvalidArgs("invalid priority: %s", priority)
	}
	if title == "" {
		return nil, errors.InvalidArgs("title cannot be empty")
	}

	if err := s.claimRepo.Create(claim); err != nil {
		return nil, errors.WrapInternal(err, "failed to create claim")
	}

	entry := models.NewActivityLog(claim.ID, models.ActionFiled, actor.Type, actor.ID,
		fmt.Sprintf("claim %s filed", claim.Key()))
	entry.ToStatus = string(claim.Status)
	if err := s.activityRepo.Create(entry); err != nil {
		return nil, errors.WrapInternal(err, "failed to log filing")
	}

	return claim, nil
}

// Get retrieves a claim by organization key and number.
func (s *ClaimService) Get(orgKey string, number int) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByKey(orgKey, number)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to get claim")
	}
	if claim == nil {
		return nil, errors.NotFound("claim not found: %s-%d", models.NormalizeOrgKey(orgKey), number)
	}
	return claim, nil
}

// List retrieves claims matching the filter.
func (s *ClaimService) List(filter db.ClaimFilter) ([]*models.Claim, error) {
	claims, err := s.claimRepo.List(filter)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list claims")
	}
	return claims, nil
}

// Transition attempts to move a claim to a new status. The decision is
// made against the freshly loaded claim and applied with a
// compare-and-swap on its status; if a concurrent writer wins the swap,
// the transition is re-evaluated against the new state a bounded number
// of times before giving up with a conflict error.
//
// Every attempt is recorded in the activity log, accepted or rejected.
func (s *ClaimService) Transition(orgKey string, number int, to models.ClaimState, actor Actor) (*TransitionResult, error) {
	for attempt := 0; attempt <= maxTransitionRetries; attempt++ {
		claim, err := s.Get(orgKey, number)
		if err != nil {
			return nil, err
		}

		kinds, err := s.signalRepo.ActiveKinds(claim.ID)
		if err != nil {
			return nil, errors.WrapInternal(err, "failed to load active signals")
		}

		decision := s.engine.Evaluate(workflow.Request{
			ClaimKey:        claim.Key(),
			From:            claim.Status,
			To:              to,
			ActorID:         actor.ID,
			ActorRoleLevel:  actor.RoleLevel,
			Priority:        claim.Priority,
			StatusEnteredAt: claim.StatusEnteredAt,
			Now:             time.Now(),
			Signals:         workflow.NewSignalSet(kinds...),
		})

		if !decision.Allowed {
			s.logDenied(claim, to, actor, decision)
			return nil, errors.WorkflowRejected(string(decision.Code), decision.Message)
		}

		if s.beforeApply != nil {
			s.beforeApply(claim, attempt)
		}

		ok, err := s.claimRepo.UpdateStatusCAS(claim.ID, claim.Status, decision.Mutation)
		if err != nil {
			return nil, errors.WrapInternal(err, "failed to apply transition")
		}
		if !ok {
			// Lost the race; re-read and re-evaluate.
			continue
		}

		if err := s.logAccepted(claim, actor, decision); err != nil {
			return nil, err
		}

		updated, err := s.claimRepo.GetByID(claim.ID)
		if err != nil {
			return nil, errors.WrapInternal(err, "failed to reload claim")
		}
		return &TransitionResult{
			Claim:    updated,
			From:     string(claim.Status),
			To:       string(decision.Mutation.Status),
			Warnings: decision.Warnings,
		}, nil
	}

	return nil, errors.ConcurrentConflict(
		"claim %s-%d status changed concurrently; retry the transition",
		models.NormalizeOrgKey(orgKey), number)
}

// Close moves a claim to closed. Claims are never deleted; closing is
// the archival path and is subject to the same workflow checks as any
// other transition.
func (s *ClaimService) Close(orgKey string, number int, actor Actor) (*TransitionResult, error) {
	return s.Transition(orgKey, number, models.StateClosed, actor)
}

// Withdraw moves a claim to withdrawn at the claimant's request.
func (s *ClaimService) Withdraw(orgKey string, number int, actor Actor) (*TransitionResult, error) {
	return s.Transition(orgKey, number, models.StateWithdrawn, actor)
}

// TransitionOption describes one reachable target from a claim's
// current status, with what the transition demands.
type TransitionOption struct {
	To           models.ClaimState     `json:"to"`
	Requirements workflow.Requirements `json:"requirements"`
	Permitted    bool                  `json:"permitted"`
}

// AllowedTransitions returns every legal target from the claim's current
// status, annotated with requirements and whether the actor's role level
// permits it.
func (s *ClaimService) AllowedTransitions(orgKey string, number int, actor Actor) ([]TransitionOption, error) {
	claim, err := s.Get(orgKey, number)
	if err != nil {
		return nil, err
	}

	targets := s.engine.AllowedTargets(claim.Status)
	options := make([]TransitionOption, 0, len(targets))
	for _, to := range targets {
		reqs := s.engine.Requirements(claim.Status, to)
		options = append(options, TransitionOption{
			To:           to,
			Requirements: reqs,
			Permitted:    actor.RoleLevel >= reqs.RequiredLevel,
		})
	}
	return options, nil
}

// UpdateFields updates a claim's non-status fields and logs the change.
// Status is not touchable here; it only moves through Transition.
func (s *ClaimService) UpdateFields(orgKey string, number int, title, claimant *string, priority *models.Priority, actor Actor) (*models.Claim, error) {
	claim, err := s.Get(orgKey, number)
	if err != nil {
		return nil, err
	}

	changed := map[string]interface{}{}
	if title != nil && *title != claim.Title {
		if *title == "" {
			return nil, errors.InvalidArgs("title cannot be empty")
		}
		changed["title"] = *title
		claim.Title = *title
	}
	if claimant != nil && *claimant != claim.Claimant {
		changed["claimant"] = *claimant
		claim.Claimant = *claimant
	}
	if priority != nil && *priority != claim.Priority {
		if !priority.IsValid() {
			return nil, errors.InvalidArgs("invalid priority: %s", *priority)
		}
		changed["priority"] = string(*priority)
		claim.Priority = *priority
	}
	if len(changed) == 0 {
		return claim, nil
	}

	if err := s.claimRepo.UpdateFields(claim); err != nil {
		return nil, errors.WrapInternal(err, "failed to update claim")
	}

	entry := models.NewActivityLog(claim.ID, models.ActionFieldChanged, actor.Type, actor.ID,
		fmt.Sprintf("claim %s fields updated", claim.Key()))
	if err := entry.SetDetails(changed); err == nil {
		if err := s.activityRepo.Create(entry); err != nil {
			return nil, errors.WrapInternal(err, "failed to log field change")
		}
	}

	return claim, nil
}

// RaiseSignal attaches a hazard signal to a claim and logs it.
func (s *ClaimService) RaiseSignal(orgKey string, number int, kind models.SignalKind, severity models.Severity, note string, actor Actor) (*models.Signal, error) {
	claim, err := s.Get(orgKey, number)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, errors.InvalidArgs("invalid signal kind: %s", kind)
	}

	sig := models.NewSignal(claim.ID, kind, severity, actor.ID, note)
	if sig.Severity == "" {
		sig.Severity = models.SeverityCritical
	}
	if err := s.signalRepo.Create(sig); err != nil {
		return nil, errors.WrapInternal(err, "failed to raise signal")
	}

	entry := models.NewActivityLog(claim.ID, models.ActionSignalRaised, actor.Type, actor.ID,
		fmt.Sprintf("signal %s raised on %s", kind, claim.Key()))
	entry.SetDetails(map[string]interface{}{"kind": string(kind), "severity": string(sig.Severity)})
	if err := s.activityRepo.Create(entry); err != nil {
		return nil, errors.WrapInternal(err, "failed to log signal")
	}

	return sig, nil
}

// ResolveSignal marks a signal resolved and logs it.
func (s *ClaimService) ResolveSignal(signalID int64, actor Actor) (*models.Signal, error) {
	sig, err := s.signalRepo.GetByID(signalID)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to get signal")
	}
	if sig == nil {
		return nil, errors.NotFound("signal not found: %d", signalID)
	}

	if err := s.signalRepo.Resolve(signalID); err != nil {
		return nil, errors.WrapInternal(err, "failed to resolve signal")
	}

	entry := models.NewActivityLog(sig.ClaimID, models.ActionSignalResolved, actor.Type, actor.ID,
		fmt.Sprintf("signal %s resolved on %s", sig.Kind, sig.ClaimKey))
	if err := s.activityRepo.Create(entry); err != nil {
		return nil, errors.WrapInternal(err, "failed to log signal resolution")
	}

	return s.signalRepo.GetByID(signalID)
}

// Signals lists all signals on a claim.
func (s *ClaimService) Signals(orgKey string, number int) ([]*models.Signal, error) {
	claim, err := s.Get(orgKey, number)
	if err != nil {
		return nil, err
	}
	signals, err := s.signalRepo.ListByClaim(claim.ID)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list signals")
	}
	return signals, nil
}

// Activity lists the audit trail for a claim, newest first.
func (s *ClaimService) Activity(orgKey string, number int, limit int) ([]*models.ActivityLog, error) {
	claim, err := s.Get(orgKey, number)
	if err != nil {
		return nil, err
	}
	entries, err := s.activityRepo.List(db.ActivityFilter{ClaimID: &claim.ID, Limit: limit})
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list activity")
	}
	return entries, nil
}

func (s *ClaimService) logAccepted(claim *models.Claim, actor Actor, decision workflow.Decision) error {
	entry := models.NewActivityLog(claim.ID, models.ActionStatusChanged, actor.Type, actor.ID,
		fmt.Sprintf("%s -> %s", claim.Status, decision.Mutation.Status))
	entry.FromStatus = string(claim.Status)
	entry.ToStatus = string(decision.Mutation.Status)
	if len(decision.Warnings) > 0 {
		entry.SetDetails(map[string]interface{}{"warnings": decision.Warnings})
	}
	if err := s.activityRepo.Create(entry); err != nil {
		return errors.WrapInternal(err, "failed to log transition")
	}
	return nil
}

// logDenied records a rejected attempt. Denials are audit data, not
// errors; a failure to write one is swallowed so the caller still gets
// the workflow rejection.
func (s *ClaimService) logDenied(claim *models.Claim, to models.ClaimState, actor Actor, decision workflow.Decision) {
	entry := models.NewActivityLog(claim.ID, models.ActionStatusDenied, actor.Type, actor.ID,
		fmt.Sprintf("denied %s -> %s: %s", claim.Status, to, decision.Code))
	entry.FromStatus = string(claim.Status)
	entry.ToStatus = string(to)
	entry.ReasonCode = string(decision.Code)
	entry.SetDetails(map[string]interface{}{"message": decision.Message})
	s.activityRepo.Create(entry)
}
