package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActivityLog records a single audited event on a claim. Every
// attempted status transition lands here, accepted or rejected, which
// is what makes the workflow defensible after the fact.
type ActivityLog struct {
	ID         int64     `json:"id"`
	ClaimID    int64     `json:"claim_id"`
	Action     Action    `json:"action"`
	ActorType  ActorType `json:"actor_type"`
	ActorID    string    `json:"actor_id,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	ReasonCode string    `json:"reason_code,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Details    string    `json:"details,omitempty"` // JSON string
	CreatedAt  time.Time `json:"created_at"`

	// Computed fields
	ClaimKey string `json:"claim_key,omitempty"`
}

// Validate validates the activity log entry.
func (a *ActivityLog) Validate() error {
	if a.ClaimID <= 0 {
		return fmt.Errorf("claim_id is required")
	}
	if !a.Action.IsValid() {
		return fmt.Errorf("invalid action: %s", a.Action)
	}
	if !a.ActorType.IsValid() {
		return fmt.Errorf("invalid actor_type: %s", a.ActorType)
	}
	return nil
}

// GetDetails parses the JSON details into a map.
func (a *ActivityLog) GetDetails() (map[string]interface{}, error) {
	if a.Details == "" {
		return nil, nil
	}
	var details map[string]interface{}
	if err := json.Unmarshal([]byte(a.Details), &details); err != nil {
		return nil, fmt.Errorf("failed to parse details: %w", err)
	}
	return details, nil
}

// SetDetails sets the details from a map.
func (a *ActivityLog) SetDetails(details map[string]interface{}) error {
	if details == nil {
		a.Details = ""
		return nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}
	a.Details = string(data)
	return nil
}

// NewActivityLog creates a new activity log entry.
func NewActivityLog(claimID int64, action Action, actorType ActorType, actorID, summary string) *ActivityLog {
	return &ActivityLog{
		ClaimID:   claimID,
		Action:    action,
		ActorType: actorType,
		ActorID:   actorID,
		Summary:   summary,
		CreatedAt: time.Now(),
	}
}
