package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aftersales_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Technician represents the technician database model
type Technician struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     *string   `db:"phone"`
	Skills    []string  `db:"skills"`
	Available bool      `db:"available"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const technicianNotFoundMsg = "technician not found"

// Repository provides database operations for technicians
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new technicians repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new technician
func (r *Repository) Create(ctx context.Context, tech *Technician) error {
	query := `
		INSERT INTO technicians (id, name, email, phone, skills, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		tech.ID, tech.Name, tech.Email, tech.Phone, tech.Skills, tech.Available,
		tech.CreatedAt, tech.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create technician: %w", err)
	}

	return nil
}

// GetByID retrieves a technician by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Technician, error) {
	var tech Technician
	query := `SELECT id, name, email, phone, skills, available, created_at, updated_at
		FROM technicians WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&tech.ID, &tech.Name, &tech.Email, &tech.Phone, &tech.Skills,
		&tech.Available, &tech.CreatedAt, &tech.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(technicianNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get technician: %w", err)
	}

	return &tech, nil
}

// List retrieves technicians, optionally filtered by availability and skill
func (r *Repository) List(ctx context.Context, availableOnly bool, skill string) ([]Technician, error) {
	query := `SELECT id, name, email, phone, skills, available, created_at, updated_at
		FROM technicians WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if availableOnly {
		query += " AND available = true"
	}
	if skill != "" {
		query += fmt.Sprintf(" AND $%d = ANY(skills)", argPos)
		args = append(args, skill)
		argPos++
	}
	query += " ORDER BY name ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	defer rows.Close()

	technicians := []Technician{}
	for rows.Next() {
		var tech Technician
		if err := rows.Scan(
			&tech.ID, &tech.Name, &tech.Email, &tech.Phone, &tech.Skills,
			&tech.Available, &tech.CreatedAt, &tech.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan technician: %w", err)
		}
		technicians = append(technicians, tech)
	}

	return technicians, rows.Err()
}

// SetAvailability updates the availability flag
func (r *Repository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	query := `UPDATE technicians SET available = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, available, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update technician availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(technicianNotFoundMsg)
	}

	return nil
}
