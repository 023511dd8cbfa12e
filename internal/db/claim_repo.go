package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/workflow"
)

// ClaimRepo provides database operations for claims.
//
// Status writes go through UpdateStatusCAS so that a claim's status can
// only change from the state the caller evaluated against. Everything
// else here is plain CRUD.
type ClaimRepo struct {
	db *sql.DB
}

// NewClaimRepo creates a new ClaimRepo.
func NewClaimRepo(db *sql.DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

// ClaimFilter defines filters for listing claims.
type ClaimFilter struct {
	OrganizationID *int64
	Status         *models.ClaimState
	Priority       *models.Priority
	Open           bool // only non-terminal claims
	Limit          int
	Offset         int
}

const claimColumns = `
	c.id, c.organization_id, c.number, c.title, c.claimant,
	c.status, c.priority, c.status_entered_at, c.resolved_at, c.closed_at,
	c.created_at, c.updated_at, o.key AS org_key
`

// Create creates a new claim, assigning the next number within its
// organization. New claims always start in submitted.
func (r *ClaimRepo) Create(c *models.Claim) error {
	if c.Status == "" {
		c.Status = models.StateSubmitted
	}
	if c.Priority == "" {
		c.Priority = models.PriorityMedium
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid claim: %w", err)
	}

	query := `
		INSERT INTO claims (organization_id, number, title, claimant, status, priority,
			status_entered_at, created_at, updated_at)
		VALUES (?, (SELECT COALESCE(MAX(number), 0) + 1 FROM claims WHERE organization_id = ?),
			?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := r.db.Exec(query,
		c.OrganizationID, c.OrganizationID, c.Title, nullString(c.Claimant),
		c.Status, c.Priority, FormatTime(now), FormatTime(now), FormatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get claim id: %w", err)
	}

	created, err := r.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to reload created claim: %w", err)
	}
	*c = *created
	return nil
}

// GetByID retrieves a claim by ID. Returns nil if not found.
func (r *ClaimRepo) GetByID(id int64) (*models.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims c
		JOIN organizations o ON c.organization_id = o.id
		WHERE c.id = ?
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByKey retrieves a claim by organization key and number (e.g. "ACME", 12).
// Returns nil if not found.
func (r *ClaimRepo) GetByKey(orgKey string, number int) (*models.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims c
		JOIN organizations o ON c.organization_id = o.id
		WHERE o.key = ? AND c.number = ?
	`
	return r.scanOne(r.db.QueryRow(query, models.NormalizeOrgKey(orgKey), number))
}

// List retrieves claims matching the given filter, newest first.
func (r *ClaimRepo) List(filter ClaimFilter) ([]*models.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims c
		JOIN organizations o ON c.organization_id = o.id
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.OrganizationID != nil {
		query += " AND c.organization_id = ?"
		args = append(args, *filter.OrganizationID)
	}
	if filter.Status != nil {
		query += " AND c.status = ?"
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		query += " AND c.priority = ?"
		args = append(args, *filter.Priority)
	}
	if filter.Open {
		query += " AND c.status NOT IN ('closed', 'withdrawn', 'rejected')"
	}

	query += " ORDER BY c.created_at DESC, c.id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// UpdateFields updates a claim's mutable non-status fields.
// Status is deliberately excluded; use UpdateStatusCAS.
func (r *ClaimRepo) UpdateFields(c *models.Claim) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid claim: %w", err)
	}

	query := `
		UPDATE claims
		SET title = ?, claimant = ?, priority = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	result, err := r.db.Exec(query, c.Title, nullString(c.Claimant), c.Priority, FormatTime(now), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("claim not found: %d", c.ID)
	}

	c.UpdatedAt = now
	return nil
}

// UpdateStatusCAS applies a status mutation with a compare-and-swap on the
// current status. It returns false (with no error) when the claim's status
// no longer matches from, meaning another writer won the race and the
// caller must re-read and re-evaluate.
//
// resolved_at and closed_at are set at most once; an existing value is
// never overwritten or cleared.
func (r *ClaimRepo) UpdateStatusCAS(id int64, from models.ClaimState, m *workflow.Mutation) (bool, error) {
	query := `
		UPDATE claims
		SET status = ?,
			status_entered_at = ?,
			resolved_at = COALESCE(resolved_at, ?),
			closed_at = COALESCE(closed_at, ?),
			updated_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query,
		m.Status, FormatTime(m.StatusEnteredAt),
		FormatTimePtr(m.ResolvedAt), FormatTimePtr(m.ClosedAt),
		NowRFC3339(), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update claim status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check status update result: %w", err)
	}
	return affected == 1, nil
}

// StatusCounts returns a map of status to claim count for an organization.
// A zero orgID counts across all organizations.
func (r *ClaimRepo) StatusCounts(orgID int64) (map[models.ClaimState]int, error) {
	query := `SELECT status, COUNT(*) FROM claims`
	args := []interface{}{}
	if orgID > 0 {
		query += " WHERE organization_id = ?"
		args = append(args, orgID)
	}
	query += " GROUP BY status"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count claims: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ClaimState]int)
	for rows.Next() {
		var status models.ClaimState
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ClaimRepo) scanOne(row *sql.Row) (*models.Claim, error) {
	var c models.Claim
	var claimant sql.NullString
	var resolvedAt, closedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Number, &c.Title, &claimant,
		&c.Status, &c.Priority, &c.StatusEnteredAt, &resolvedAt, &closedAt,
		&c.CreatedAt, &c.UpdatedAt, &c.OrgKey,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan claim: %w", err)
	}

	c.Claimant = claimant.String
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	if closedAt.Valid {
		c.ClosedAt = &closedAt.Time
	}
	c.ClaimKey = fmt.Sprintf("%s-%d", c.OrgKey, c.Number)
	return &c, nil
}

func (r *ClaimRepo) scanMany(rows *sql.Rows) ([]*models.Claim, error) {
	var claims []*models.Claim
	for rows.Next() {
		var c models.Claim
		var claimant sql.NullString
		var resolvedAt, closedAt sql.NullTime

		err := rows.Scan(
			&c.ID, &c.OrganizationID, &c.Number, &c.Title, &claimant,
			&c.Status, &c.Priority, &c.StatusEnteredAt, &resolvedAt, &closedAt,
			&c.CreatedAt, &c.UpdatedAt, &c.OrgKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}

		c.Claimant = claimant.String
		if resolvedAt.Valid {
			c.ResolvedAt = &resolvedAt.Time
		}
		if closedAt.Valid {
			c.ClosedAt = &closedAt.Time
		}
		c.ClaimKey = fmt.Sprintf("%s-%d", c.OrgKey, c.Number)
		claims = append(claims, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claims: %w", err)
	}
	return claims, nil
}

// Helper functions for nullable types
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
