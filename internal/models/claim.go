package models

import (
	"fmt"
	"time"
)

// Claim represents a grievance/case record whose lifecycle the workflow
// engine governs. Claims are never deleted; they end in a terminal state.
type Claim struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Number         int    `json:"number"`
	Title          string `json:"title"`
	Claimant       string `json:"claimant,omitempty"`

	Status   ClaimState `json:"status"`
	Priority Priority   `json:"priority"`

	// StatusEnteredAt is set atomically with every status change and
	// drives dwell-time enforcement. Monotonic per claim.
	StatusEnteredAt time.Time `json:"status_entered_at"`

	// History timestamps: set once, never cleared.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Computed fields (not stored in DB, populated by queries)
	OrgKey   string `json:"org_key,omitempty"`
	ClaimKey string `json:"claim_key,omitempty"`
}

// Key returns the claim key in the format ORG-NUMBER.
func (c *Claim) Key() string {
	if c.ClaimKey != "" {
		return c.ClaimKey
	}
	if c.OrgKey != "" {
		return fmt.Sprintf("%s-%d", c.OrgKey, c.Number)
	}
	return fmt.Sprintf("?-%d", c.Number)
}

// Validate validates the claim fields.
func (c *Claim) Validate() error {
	if c.OrganizationID <= 0 {
		return fmt.Errorf("organization_id is required")
	}
	if c.Title == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	if !c.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", c.Priority)
	}
	if c.Status == StateClosed && c.ClosedAt == nil {
		return fmt.Errorf("closed_at is required when status is closed")
	}
	return nil
}

// IsTerminal returns true if the claim is in an absorbing state.
func (c *Claim) IsTerminal() bool {
	return c.Status.IsTerminal()
}

// DwellTime returns how long the claim has held its current status.
func (c *Claim) DwellTime(now time.Time) time.Duration {
	return now.Sub(c.StatusEnteredAt)
}
