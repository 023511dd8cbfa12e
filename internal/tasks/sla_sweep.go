// Package tasks provides background task runners for claimflow.
package tasks

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/workflow"
)

// SweepItem represents the result of examining a single overdue claim.
type SweepItem struct {
	ClaimID      int64     `json:"claim_id"`
	ClaimKey     string    `json:"claim_key"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	Deadline     time.Time `json:"deadline"`
	Raised       bool      `json:"raised"`
	AlreadyOpen  bool      `json:"already_open,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
}

// SweepResult represents the result of running the SLA sweep.
type SweepResult struct {
	Examined int          `json:"examined"`
	Breached int          `json:"breached"`
	Raised   int          `json:"raised"`
	Errors   int          `json:"errors"`
	Results  []*SweepItem `json:"results,omitempty"`
	DryRun   bool         `json:"dry_run"`
}

// SLASweeper raises SLA_BREACH signals on open claims that have sat in
// their current status past the SLA deadline. Raising is idempotent: a
// claim with an active SLA_BREACH signal is skipped, so repeated sweeps
// do not pile up duplicates.
type SLASweeper struct {
	db           *sql.DB
	claimRepo    *db.ClaimRepo
	signalRepo   *db.SignalRepo
	activityRepo *db.ActivityRepo
	sla          workflow.SLAPolicy
}

// NewSLASweeper creates a new SLASweeper using the engine's SLA policy.
func NewSLASweeper(database *sql.DB, engine *workflow.Engine) *SLASweeper {
	return &SLASweeper{
		db:           database,
		claimRepo:    db.NewClaimRepo(database),
		signalRepo:   db.NewSignalRepo(database),
		activityRepo: db.NewActivityRepo(database),
		sla:          engine.SLA(),
	}
}

// SweepAll examines every open claim and raises breach signals where due.
// If dryRun is true, it reports what would be raised without writing.
func (s *SLASweeper) SweepAll(dryRun bool) (*SweepResult, error) {
	result := &SweepResult{DryRun: dryRun}

	open, err := s.claimRepo.List(db.ClaimFilter{Open: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list open claims: %w", err)
	}

	now := time.Now()
	result.Examined = len(open)

	for _, claim := range open {
		if !s.sla.IsBreached(claim.Priority, claim.StatusEnteredAt, now) {
			continue
		}
		result.Breached++

		item := s.processBreachedClaim(claim, dryRun)
		result.Results = append(result.Results, item)

		if item.ErrorMessage != "" {
			result.Errors++
		} else if item.Raised {
			result.Raised++
		}
	}

	return result, nil
}

// processBreachedClaim raises a breach signal for one overdue claim.
func (s *SLASweeper) processBreachedClaim(claim *models.Claim, dryRun bool) *SweepItem {
	item := &SweepItem{
		ClaimID:  claim.ID,
		ClaimKey: claim.Key(),
		Status:   string(claim.Status),
		Priority: string(claim.Priority),
		Deadline: s.sla.Deadline(claim.Priority, claim.StatusEnteredAt),
	}

	active, err := s.signalRepo.HasActive(claim.ID, models.SignalSLABreach)
	if err != nil {
		item.ErrorMessage = fmt.Sprintf("failed to check existing signal: %v", err)
		return item
	}
	if active {
		item.AlreadyOpen = true
		return item
	}

	if dryRun {
		item.Raised = true
		return item
	}

	note := fmt.Sprintf("claim overdue in %s since %s", claim.Status, db.FormatTime(item.Deadline))
	sig := models.NewSignal(claim.ID, models.SignalSLABreach, models.SeverityCritical, "sla-sweeper", note)
	if err := s.signalRepo.Create(sig); err != nil {
		item.ErrorMessage = fmt.Sprintf("failed to raise signal: %v", err)
		return item
	}

	entry := models.NewActivityLog(claim.ID, models.ActionSignalRaised, models.ActorTypeSystem, "sla-sweeper",
		fmt.Sprintf("SLA breach on %s", claim.Key()))
	entry.SetDetails(map[string]interface{}{
		"kind":     string(models.SignalSLABreach),
		"deadline": db.FormatTime(item.Deadline),
	})
	if err := s.activityRepo.Create(entry); err != nil {
		item.ErrorMessage = fmt.Sprintf("failed to log signal: %v", err)
		return item
	}

	item.Raised = true
	return item
}
