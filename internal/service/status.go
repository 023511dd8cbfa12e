package service

import (
	"database/sql"
	"time"

	"github.com/unionhall/claimflow/internal/common"
	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/errors"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/workflow"
)

// StatusService provides aggregated status queries for dashboards.
type StatusService struct {
	orgRepo      *db.OrgRepo
	claimRepo    *db.ClaimRepo
	signalRepo   *db.SignalRepo
	activityRepo *db.ActivityRepo
	engine       *workflow.Engine
}

// NewStatusService creates a new StatusService.
func NewStatusService(database *sql.DB, engine *workflow.Engine) *StatusService {
	return &StatusService{
		orgRepo:      db.NewOrgRepo(database),
		claimRepo:    db.NewClaimRepo(database),
		signalRepo:   db.NewSignalRepo(database),
		activityRepo: db.NewActivityRepo(database),
		engine:       engine,
	}
}

// SLAItem represents a claim at or past its SLA deadline.
type SLAItem struct {
	ClaimKey string    `json:"claim_key"`
	Status   string    `json:"status"`
	Priority string    `json:"priority"`
	Deadline time.Time `json:"deadline"`
	Breached bool      `json:"breached"`
}

// ActivityItem represents a recent activity entry.
type ActivityItem struct {
	ClaimKey string `json:"claim_key"`
	Action   string `json:"action"`
	Age      string `json:"age"`
	Summary  string `json:"summary"`
}

// StatusSummary contains aggregated claim counts and attention lists.
type StatusSummary struct {
	OrgKey         string                    `json:"org_key,omitempty"`
	Counts         map[models.ClaimState]int `json:"counts"`
	Open           int                       `json:"open"`
	AtRisk         []SLAItem                 `json:"at_risk"`
	RecentActivity []ActivityItem            `json:"recent_activity"`
}

// GetSummary returns an aggregated summary for the given organization
// key. If orgKey is empty, the summary spans all organizations.
func (s *StatusService) GetSummary(orgKey string) (*StatusSummary, error) {
	summary := &StatusSummary{
		Counts:         map[models.ClaimState]int{},
		AtRisk:         []SLAItem{},
		RecentActivity: []ActivityItem{},
	}

	var orgID int64
	if orgKey != "" {
		org, err := s.orgRepo.GetByKey(orgKey)
		if err != nil {
			return nil, errors.WrapInternal(err, "failed to look up organization")
		}
		if org == nil {
			return nil, errors.NotFound("organization not found: %s", models.NormalizeOrgKey(orgKey))
		}
		orgID = org.ID
		summary.OrgKey = org.Key
	}

	counts, err := s.claimRepo.StatusCounts(orgID)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to count claims")
	}
	summary.Counts = counts
	for _, state := range models.AllClaimStates {
		if state.IsOpen() {
			summary.Open += counts[state]
		}
	}

	// Open claims at or past their SLA deadline.
	filter := db.ClaimFilter{Open: true, Limit: 1000}
	if orgID > 0 {
		filter.OrganizationID = &orgID
	}
	open, err := s.claimRepo.List(filter)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list open claims")
	}

	now := time.Now()
	sla := s.engine.SLA()
	for _, claim := range open {
		warnings := sla.Warnings(claim.Status, claim.Priority, claim.StatusEnteredAt, now)
		if len(warnings) == 0 {
			continue
		}
		summary.AtRisk = append(summary.AtRisk, SLAItem{
			ClaimKey: claim.Key(),
			Status:   string(claim.Status),
			Priority: string(claim.Priority),
			Deadline: sla.Deadline(claim.Priority, claim.StatusEnteredAt),
			Breached: sla.IsBreached(claim.Priority, claim.StatusEnteredAt, now),
		})
	}

	entries, err := s.activityRepo.List(db.ActivityFilter{Limit: 10})
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list activity")
	}
	for _, e := range entries {
		summary.RecentActivity = append(summary.RecentActivity, ActivityItem{
			ClaimKey: e.ClaimKey,
			Action:   string(e.Action),
			Age:      common.FormatDuration(now.Sub(e.CreatedAt)),
			Summary:  e.Summary,
		})
	}

	return summary, nil
}
