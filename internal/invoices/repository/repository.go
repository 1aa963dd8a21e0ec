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

// Invoice represents the invoice database model. ComplaintID is resolved
// through the intervention on reads.
type Invoice struct {
	ID             uuid.UUID  `db:"id"`
	InterventionID uuid.UUID  `db:"intervention_id"`
	ComplaintID    uuid.UUID  `db:"complaint_id"`
	Number         string     `db:"number"`
	NetCents       int64      `db:"net_cents"`
	TaxCents       int64      `db:"tax_cents"`
	GrossCents     int64      `db:"gross_cents"`
	Status         string     `db:"status"`
	IssuedAt       time.Time  `db:"issued_at"`
	PaymentDate    *time.Time `db:"payment_date"`
	PaymentMethod  *string    `db:"payment_method"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// InterventionSnapshot is the slice of an intervention the invoicing
// preconditions need.
type InterventionSnapshot struct {
	ID          uuid.UUID
	ComplaintID uuid.UUID
	Status      string
	Billable    bool
	CostCents   int64
}

// ListFilters narrows the invoice listing.
type ListFilters struct {
	Status        string
	UnpaidOnly    bool
	IssuedFrom    *time.Time
	IssuedTo      *time.Time
	GrossMinCents *int64
	GrossMaxCents *int64
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so the insert can take
// part in the intervention completion transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	invoiceNotFoundMsg    = "invoice not found"
	alreadyInvoicedMsg    = "intervention already invoiced"
	pgUniqueViolationCode = "23505"
)

// ErrNumberCollision reports an insert that lost the race on the invoice
// number. The caller draws a fresh number and retries once.
var ErrNumberCollision = errors.New("invoice number collision")

const invoiceColumns = `i.id, i.intervention_id, iv.complaint_id, i.number, i.net_cents, i.tax_cents,
	i.gross_cents, i.status, i.issued_at, i.payment_date, i.payment_method, i.created_at, i.updated_at`

// Repository provides database operations for invoices
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new invoices repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextInvoiceNumber atomically increments the per-year counter and returns
// the next sequence value.
func (r *Repository) NextInvoiceNumber(ctx context.Context, q DBTX, year int) (int64, error) {
	if q == nil {
		q = r.pool
	}

	var number int64
	query := `
		INSERT INTO invoice_counters (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year)
		DO UPDATE SET last_number = invoice_counters.last_number + 1
		RETURNING last_number`

	if err := q.QueryRow(ctx, query, year).Scan(&number); err != nil {
		return 0, fmt.Errorf("failed to get next invoice number: %w", err)
	}

	return number, nil
}

// Insert writes a new invoice. The unique constraint on intervention_id is
// the invoicing guard under concurrency: a violation on it maps to a
// conflict, a violation on the number maps to ErrNumberCollision.
func (r *Repository) Insert(ctx context.Context, q DBTX, inv *Invoice) error {
	if q == nil {
		q = r.pool
	}

	query := `
		INSERT INTO invoices (id, intervention_id, number, net_cents, tax_cents, gross_cents,
			status, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := q.Exec(ctx, query,
		inv.ID, inv.InterventionID, inv.Number, inv.NetCents, inv.TaxCents, inv.GrossCents,
		inv.Status, inv.IssuedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			if pgErr.ConstraintName == "invoices_number_key" {
				return ErrNumberCollision
			}
			return apperr.Conflict(alreadyInvoicedMsg)
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	return nil
}

// GetByID retrieves an invoice by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN interventions iv ON iv.id = i.intervention_id
		WHERE i.id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByInterventionID retrieves the invoice for an intervention, if any
func (r *Repository) GetByInterventionID(ctx context.Context, interventionID uuid.UUID) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN interventions iv ON iv.id = i.intervention_id
		WHERE i.intervention_id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, interventionID))
}

// ExistsForIntervention reports whether an invoice already references the
// intervention.
func (r *Repository) ExistsForIntervention(ctx context.Context, interventionID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM invoices WHERE intervention_id = $1)`

	if err := r.pool.QueryRow(ctx, query, interventionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check invoice existence: %w", err)
	}

	return exists, nil
}

// GetInterventionSnapshot reads the invoicing-relevant fields of an
// intervention.
func (r *Repository) GetInterventionSnapshot(ctx context.Context, interventionID uuid.UUID) (*InterventionSnapshot, error) {
	var snap InterventionSnapshot
	query := `SELECT id, complaint_id, status, billable, cost_cents FROM interventions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, interventionID).Scan(&snap.ID, &snap.ComplaintID, &snap.Status, &snap.Billable, &snap.CostCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("intervention not found")
		}
		return nil, fmt.Errorf("failed to get intervention snapshot: %w", err)
	}

	return &snap, nil
}

// List retrieves invoices matching the filters, ordered by number
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN interventions iv ON iv.id = i.intervention_id
		WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND i.status = $%d", argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.UnpaidOnly {
		query += " AND i.status = 'unpaid'"
	}
	if filters.IssuedFrom != nil {
		query += fmt.Sprintf(" AND i.issued_at >= $%d", argPos)
		args = append(args, *filters.IssuedFrom)
		argPos++
	}
	if filters.IssuedTo != nil {
		query += fmt.Sprintf(" AND i.issued_at <= $%d", argPos)
		args = append(args, *filters.IssuedTo)
		argPos++
	}
	if filters.GrossMinCents != nil {
		query += fmt.Sprintf(" AND i.gross_cents >= $%d", argPos)
		args = append(args, *filters.GrossMinCents)
		argPos++
	}
	if filters.GrossMaxCents != nil {
		query += fmt.Sprintf(" AND i.gross_cents <= $%d", argPos)
		args = append(args, *filters.GrossMaxCents)
		argPos++
	}
	query += " ORDER BY i.number ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(
			&inv.ID, &inv.InterventionID, &inv.ComplaintID, &inv.Number, &inv.NetCents, &inv.TaxCents,
			&inv.GrossCents, &inv.Status, &inv.IssuedAt, &inv.PaymentDate, &inv.PaymentMethod,
			&inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}

	return invoices, rows.Err()
}

// MarkPaid flips an unpaid invoice to paid. The status guard in the WHERE
// clause keeps a second confirmation from touching payment_date or
// payment_method.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, paymentDate time.Time, paymentMethod string) error {
	query := `UPDATE invoices
		SET status = 'paid', payment_date = $1, payment_method = $2, updated_at = $3
		WHERE id = $4 AND status = 'unpaid'`

	tag, err := r.pool.Exec(ctx, query, paymentDate, paymentMethod, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyPaymentRejection(ctx, id)
	}

	return nil
}

func (r *Repository) classifyPaymentRejection(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(invoiceNotFoundMsg)
		}
		return fmt.Errorf("failed to inspect invoice status: %w", err)
	}

	if status == "paid" {
		return apperr.Conflict("invoice already paid")
	}
	return apperr.Conflict("invoice is " + status)
}

// UpdateStatus writes a status change outside the payment path
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE invoices SET status = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(invoiceNotFoundMsg)
	}

	return nil
}

func (r *Repository) scanOne(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.InterventionID, &inv.ComplaintID, &inv.Number, &inv.NetCents, &inv.TaxCents,
		&inv.GrossCents, &inv.Status, &inv.IssuedAt, &inv.PaymentDate, &inv.PaymentMethod,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(invoiceNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &inv, nil
}
