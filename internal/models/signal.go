package models

import (
	"fmt"
	"time"
)

// Signal is a hazard flag attached to a claim by a monitoring or
// compliance process. Active signals (resolved_at IS NULL) are fed to
// the workflow engine's signal gate at decision time.
type Signal struct {
	ID         int64      `json:"id"`
	ClaimID    int64      `json:"claim_id"`
	Kind       SignalKind `json:"kind"`
	Severity   Severity   `json:"severity"`
	RaisedBy   string     `json:"raised_by,omitempty"`
	RaisedAt   time.Time  `json:"raised_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Note       string     `json:"note,omitempty"`

	// Computed fields
	ClaimKey string `json:"claim_key,omitempty"`
}

// Validate validates the signal fields.
func (s *Signal) Validate() error {
	if s.ClaimID <= 0 {
		return fmt.Errorf("claim_id is required")
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("invalid signal kind: %s", s.Kind)
	}
	if !s.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", s.Severity)
	}
	return nil
}

// IsActive returns true if the signal has not been resolved.
func (s *Signal) IsActive() bool {
	return s.ResolvedAt == nil
}

// NewSignal creates a signal raised now.
func NewSignal(claimID int64, kind SignalKind, severity Severity, raisedBy, note string) *Signal {
	return &Signal{
		ClaimID:  claimID,
		Kind:     kind,
		Severity: severity,
		RaisedBy: raisedBy,
		RaisedAt: time.Now(),
		Note:     note,
	}
}
