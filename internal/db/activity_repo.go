package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/unionhall/claimflow/internal/models"
)

// ActivityRepo provides database operations for activity log entries.
type ActivityRepo struct {
	db *sql.DB
}

// NewActivityRepo creates a new ActivityRepo.
func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// ActivityFilter defines filters for listing activity log entries.
type ActivityFilter struct {
	ClaimID   *int64
	Action    *models.Action
	ActorType *models.ActorType
	ActorID   string
	Since     *time.Time
	Limit     int
	Offset    int
}

// Create creates a new activity log entry.
func (r *ActivityRepo) Create(a *models.ActivityLog) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid activity log: %w", err)
	}

	query := `
		INSERT INTO activity_log (claim_id, action, actor_type, actor_id,
			from_status, to_status, reason_code, summary, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := r.db.Exec(query,
		a.ClaimID, a.Action, a.ActorType, nullString(a.ActorID),
		nullString(a.FromStatus), nullString(a.ToStatus), nullString(a.ReasonCode),
		nullString(a.Summary), nullString(a.Details), FormatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get activity log id: %w", err)
	}

	a.ID = id
	a.CreatedAt = now
	return nil
}

// GetByID retrieves an activity log entry by ID. Returns nil if not found.
func (r *ActivityRepo) GetByID(id int64) (*models.ActivityLog, error) {
	query := `
		SELECT a.id, a.claim_id, a.action, a.actor_type, a.actor_id,
			a.from_status, a.to_status, a.reason_code, a.summary, a.details, a.created_at,
			o.key || '-' || c.number AS claim_key
		FROM activity_log a
		JOIN claims c ON a.claim_id = c.id
		JOIN organizations o ON c.organization_id = o.id
		WHERE a.id = ?
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

// List retrieves activity log entries matching the given filter.
func (r *ActivityRepo) List(filter ActivityFilter) ([]*models.ActivityLog, error) {
	query := `
		SELECT a.id, a.claim_id, a.action, a.actor_type, a.actor_id,
			a.from_status, a.to_status, a.reason_code, a.summary, a.details, a.created_at,
			o.key || '-' || c.number AS claim_key
		FROM activity_log a
		JOIN claims c ON a.claim_id = c.id
		JOIN organizations o ON c.organization_id = o.id
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.ClaimID != nil {
		query += " AND a.claim_id = ?"
		args = append(args, *filter.ClaimID)
	}
	if filter.Action != nil {
		query += " AND a.action = ?"
		args = append(args, *filter.Action)
	}
	if filter.ActorType != nil {
		query += " AND a.actor_type = ?"
		args = append(args, *filter.ActorType)
	}
	if filter.ActorID != "" {
		query += " AND a.actor_id = ?"
		args = append(args, filter.ActorID)
	}
	if filter.Since != nil {
		query += " AND a.created_at >= ?"
		args = append(args, FormatTime(*filter.Since))
	}

	query += " ORDER BY a.created_at DESC, a.id DESC"

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
		return nil, fmt.Errorf("failed to list activity log: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *ActivityRepo) scanOne(row *sql.Row) (*models.ActivityLog, error) {
	var a models.ActivityLog
	var actorID, fromStatus, toStatus, reasonCode, summary, details sql.NullString

	err := row.Scan(
		&a.ID, &a.ClaimID, &a.Action, &a.ActorType, &actorID,
		&fromStatus, &toStatus, &reasonCode, &summary, &details, &a.CreatedAt,
		&a.ClaimKey,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity log: %w", err)
	}

	a.ActorID = actorID.String
	a.FromStatus = fromStatus.String
	a.ToStatus = toStatus.String
	a.ReasonCode = reasonCode.String
	a.Summary = summary.String
	a.Details = details.String
	return &a, nil
}

func (r *ActivityRepo) scanMany(rows *sql.Rows) ([]*models.ActivityLog, error) {
	var entries []*models.ActivityLog
	for rows.Next() {
		var a models.ActivityLog
		var actorID, fromStatus, toStatus, reasonCode, summary, details sql.NullString

		err := rows.Scan(
			&a.ID, &a.ClaimID, &a.Action, &a.ActorType, &actorID,
			&fromStatus, &toStatus, &reasonCode, &summary, &details, &a.CreatedAt,
			&a.ClaimKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}

		a.ActorID = actorID.String
		a.FromStatus = fromStatus.String
		a.ToStatus = toStatus.String
		a.ReasonCode = reasonCode.String
		a.Summary = summary.String
		a.Details = details.String
		entries = append(entries, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity log: %w", err)
	}
	return entries, nil
}
