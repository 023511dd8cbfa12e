package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/unionhall/claimflow/internal/models"
)

// OrgRepo provides database operations for organizations.
type OrgRepo struct {
	db *sql.DB
}

// NewOrgRepo creates a new OrgRepo.
func NewOrgRepo(db *sql.DB) *OrgRepo {
	return &OrgRepo{db: db}
}

// Create creates a new organization.
func (r *OrgRepo) Create(o *models.Organization) error {
	o.Key = models.NormalizeOrgKey(o.Key)
	if err := o.Validate(); err != nil {
		return fmt.Errorf("invalid organization: %w", err)
	}

	query := `
		INSERT INTO organizations (key, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now()
	result, err := r.db.Exec(query, o.Key, o.Name, FormatTime(now), FormatTime(now))
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get organization id: %w", err)
	}

	o.ID = id
	o.CreatedAt = now
	o.UpdatedAt = now
	return nil
}

// GetByID retrieves an organization by ID. Returns nil if not found.
func (r *OrgRepo) GetByID(id int64) (*models.Organization, error) {
	query := `
		SELECT id, key, name, created_at, updated_at
		FROM organizations
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByKey retrieves an organization by key. Returns nil if not found.
func (r *OrgRepo) GetByKey(key string) (*models.Organization, error) {
	query := `
		SELECT id, key, name, created_at, updated_at
		FROM organizations
		WHERE key = ?
	`
	return r.scanOne(r.db.QueryRow(query, models.NormalizeOrgKey(key)))
}

// List retrieves all organizations ordered by key.
func (r *OrgRepo) List() ([]*models.Organization, error) {
	query := `
		SELECT id, key, name, created_at, updated_at
		FROM organizations
		ORDER BY key
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Key, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, &o)
	}
	return orgs, rows.Err()
}

// Update updates an organization's name.
func (r *OrgRepo) Update(o *models.Organization) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("invalid organization: %w", err)
	}

	query := `UPDATE organizations SET name = ?, updated_at = ? WHERE id = ?`
	now := time.Now()
	result, err := r.db.Exec(query, o.Name, FormatTime(now), o.ID)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("organization not found: %d", o.ID)
	}

	o.UpdatedAt = now
	return nil
}

func (r *OrgRepo) scanOne(row *sql.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Key, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan organization: %w", err)
	}
	return &o, nil
}
