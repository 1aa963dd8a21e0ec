package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aftersales_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Intervention represents the intervention database model
type Intervention struct {
	ID              uuid.UUID  `db:"id"`
	ComplaintID     uuid.UUID  `db:"complaint_id"`
	TechnicianID    uuid.UUID  `db:"technician_id"`
	ScheduledAt     time.Time  `db:"scheduled_at"`
	PerformedAt     *time.Time `db:"performed_at"`
	Description     string     `db:"description"`
	Status          string     `db:"status"`
	CostCents       int64      `db:"cost_cents"`
	WarrantyCovered bool       `db:"warranty_covered"`
	Billable        bool       `db:"billable"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// ListFilters narrows the intervention listing.
type ListFilters struct {
	TechnicianID  *uuid.UUID
	Status        string
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	FreeOnly      bool
	BillableOnly  bool
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so writes can take part
// in a caller-owned transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const interventionNotFoundMsg = "intervention not found"

const interventionColumns = `id, complaint_id, technician_id, scheduled_at, performed_at,
	description, status, cost_cents, warranty_covered, billable, created_at, updated_at`

// Repository provides database operations for interventions
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new interventions repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Begin starts a transaction on the underlying pool.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts a new intervention
func (r *Repository) Create(ctx context.Context, iv *Intervention) error {
	query := `
		INSERT INTO interventions (id, complaint_id, technician_id, scheduled_at, performed_at,
			description, status, cost_cents, warranty_covered, billable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		iv.ID, iv.ComplaintID, iv.TechnicianID, iv.ScheduledAt, iv.PerformedAt,
		iv.Description, iv.Status, iv.CostCents, iv.WarrantyCovered, iv.Billable,
		iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create intervention: %w", err)
	}

	return nil
}

// GetByID retrieves an intervention by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Intervention, error) {
	query := `SELECT ` + interventionColumns + ` FROM interventions WHERE id = $1`

	var iv Intervention
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&iv.ID, &iv.ComplaintID, &iv.TechnicianID, &iv.ScheduledAt, &iv.PerformedAt,
		&iv.Description, &iv.Status, &iv.CostCents, &iv.WarrantyCovered, &iv.Billable,
		&iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(interventionNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get intervention: %w", err)
	}

	return &iv, nil
}

// List retrieves interventions matching the filters, newest scheduled first
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Intervention, error) {
	query := `SELECT ` + interventionColumns + ` FROM interventions WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filters.TechnicianID != nil {
		query += fmt.Sprintf(" AND technician_id = $%d", argPos)
		args = append(args, *filters.TechnicianID)
		argPos++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.ScheduledFrom != nil {
		query += fmt.Sprintf(" AND scheduled_at >= $%d", argPos)
		args = append(args, *filters.ScheduledFrom)
		argPos++
	}
	if filters.ScheduledTo != nil {
		query += fmt.Sprintf(" AND scheduled_at <= $%d", argPos)
		args = append(args, *filters.ScheduledTo)
		argPos++
	}
	if filters.FreeOnly {
		query += " AND billable = false"
	}
	if filters.BillableOnly {
		query += " AND billable = true"
	}
	query += " ORDER BY scheduled_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interventions: %w", err)
	}
	defer rows.Close()

	interventions := []Intervention{}
	for rows.Next() {
		var iv Intervention
		if err := rows.Scan(
			&iv.ID, &iv.ComplaintID, &iv.TechnicianID, &iv.ScheduledAt, &iv.PerformedAt,
			&iv.Description, &iv.Status, &iv.CostCents, &iv.WarrantyCovered, &iv.Billable,
			&iv.CreatedAt, &iv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan intervention: %w", err)
		}
		interventions = append(interventions, iv)
	}

	return interventions, rows.Err()
}

// UpdateStatus writes a status transition. performedAt is only stored when
// non-nil. Runs against q so completion can share a transaction with the
// invoice insert; a nil q targets the pool directly.
func (r *Repository) UpdateStatus(ctx context.Context, q DBTX, id uuid.UUID, status string, performedAt *time.Time) error {
	if q == nil {
		q = r.pool
	}
	query := `UPDATE interventions
		SET status = $1, performed_at = COALESCE($2, performed_at), updated_at = $3
		WHERE id = $4`

	tag, err := q.Exec(ctx, query, status, performedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update intervention status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(interventionNotFoundMsg)
	}

	return nil
}

// Delete removes an intervention. An invoice referencing the row blocks the
// delete through the foreign key and maps to a conflict.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM interventions WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Conflict("intervention has an invoice")
		}
		return fmt.Errorf("failed to delete intervention: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(interventionNotFoundMsg)
	}

	return nil
}
