package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Organization is the tenant scope for claims. Claims are numbered
// per organization (e.g. ACME-12). The workflow engine itself is
// tenant-agnostic; callers must scope reads and writes by organization.
type Organization struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// orgKeyRegex validates organization keys (uppercase alphanumeric, 2-10 chars).
var orgKeyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

// ValidateOrgKey validates an organization key.
func ValidateOrgKey(key string) error {
	if key == "" {
		return fmt.Errorf("organization key cannot be empty")
	}
	if !orgKeyRegex.MatchString(key) {
		return fmt.Errorf("organization key must be 2-10 uppercase alphanumeric characters starting with a letter")
	}
	return nil
}

// NormalizeOrgKey uppercases a key for lookups.
func NormalizeOrgKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Validate validates the organization fields.
func (o *Organization) Validate() error {
	if err := ValidateOrgKey(o.Key); err != nil {
		return err
	}
	if o.Name == "" {
		return fmt.Errorf("organization name cannot be empty")
	}
	return nil
}
