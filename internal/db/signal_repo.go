package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/unionhall/claimflow/internal/models"
)

// SignalRepo provides database operations for claim signals.
type SignalRepo struct {
	db *sql.DB
}

// NewSignalRepo creates a new SignalRepo.
func NewSignalRepo(db *sql.DB) *SignalRepo {
	return &SignalRepo{db: db}
}

// Create creates a new signal.
func (r *SignalRepo) Create(s *models.Signal) error {
	if s.Severity == "" {
		s.Severity = models.SeverityCritical
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid signal: %w", err)
	}

	query := `
		INSERT INTO signals (claim_id, kind, severity, raised_by, raised_at, note)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := r.db.Exec(query,
		s.ClaimID, s.Kind, s.Severity, nullString(s.RaisedBy), FormatTime(now), nullString(s.Note),
	)
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get signal id: %w", err)
	}

	s.ID = id
	s.RaisedAt = now
	return nil
}

// GetByID retrieves a signal by ID. Returns nil if not found.
func (r *SignalRepo) GetByID(id int64) (*models.Signal, error) {
	query := `
		SELECT s.id, s.claim_id, s.kind, s.severity, s.raised_by,
			s.raised_at, s.resolved_at, s.note,
			o.key || '-' || c.number AS claim_key
		FROM signals s
		JOIN claims c ON s.claim_id = c.id
		JOIN organizations o ON c.organization_id = o.id
		WHERE s.id = ?
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

// ListByClaim retrieves all signals for a claim, newest first.
func (r *SignalRepo) ListByClaim(claimID int64) ([]*models.Signal, error) {
	query := `
		SELECT s.id, s.claim_id, s.kind, s.severity, s.raised_by,
			s.raised_at, s.resolved_at, s.note,
			o.key || '-' || c.number AS claim_key
		FROM signals s
		JOIN claims c ON s.claim_id = c.id
		JOIN organizations o ON c.organization_id = o.id
		WHERE s.claim_id = ?
		ORDER BY s.raised_at DESC, s.id DESC
	`
	rows, err := r.db.Query(query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// ActiveKinds returns the distinct kinds of unresolved signals on a claim.
// This is the set fed into the workflow engine's signal gate.
func (r *SignalRepo) ActiveKinds(claimID int64) ([]models.SignalKind, error) {
	query := `
		SELECT DISTINCT kind FROM signals
		WHERE claim_id = ? AND resolved_at IS NULL
		ORDER BY kind
	`
	rows, err := r.db.Query(query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active signals: %w", err)
	}
	defer rows.Close()

	var kinds []models.SignalKind
	for rows.Next() {
		var kind models.SignalKind
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("failed to scan signal kind: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, rows.Err()
}

// HasActive reports whether the claim has an unresolved signal of the
// given kind. Used to keep the SLA sweep idempotent.
func (r *SignalRepo) HasActive(claimID int64, kind models.SignalKind) (bool, error) {
	query := `
		SELECT COUNT(*) FROM signals
		WHERE claim_id = ? AND kind = ? AND resolved_at IS NULL
	`
	var count int
	if err := r.db.QueryRow(query, claimID, kind).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check active signal: %w", err)
	}
	return count > 0, nil
}

// Resolve marks a signal as resolved. Resolving an already-resolved
// signal is a no-op.
func (r *SignalRepo) Resolve(id int64) error {
	query := `UPDATE signals SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`
	result, err := r.db.Exec(query, NowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve signal: %w", err)
	}
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check resolve result: %w", err)
	}
	return nil
}

func (r *SignalRepo) scanOne(row *sql.Row) (*models.Signal, error) {
	var s models.Signal
	var raisedBy, note sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&s.ID, &s.ClaimID, &s.Kind, &s.Severity, &raisedBy,
		&s.RaisedAt, &resolvedAt, &note, &s.ClaimKey,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan signal: %w", err)
	}

	s.RaisedBy = raisedBy.String
	s.Note = note.String
	if resolvedAt.Valid {
		s.ResolvedAt = &resolvedAt.Time
	}
	return &s, nil
}

func (r *SignalRepo) scanMany(rows *sql.Rows) ([]*models.Signal, error) {
	var signals []*models.Signal
	for rows.Next() {
		var s models.Signal
		var raisedBy, note sql.NullString
		var resolvedAt sql.NullTime

		err := rows.Scan(
			&s.ID, &s.ClaimID, &s.Kind, &s.Severity, &raisedBy,
			&s.RaisedAt, &resolvedAt, &note, &s.ClaimKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}

		s.RaisedBy = raisedBy.String
		s.Note = note.String
		if resolvedAt.Valid {
			s.ResolvedAt = &resolvedAt.Time
		}
		signals = append(signals, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}
	return signals, nil
}
