package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollsys-api/internal/models"
)

// windowRowID pins the enrollment window to a single row.
const windowRowID = "singleton"

// WindowRepository manages the singleton enrollment window row.
type WindowRepository struct {
	db *sqlx.DB
}

// NewWindowRepository constructs the repository.
func NewWindowRepository(db *sqlx.DB) *WindowRepository {
	return &WindowRepository{db: db}
}

// Get returns the window, creating it in the default state when missing.
func (r *WindowRepository) Get(ctx context.Context, defaultOpen bool) (*models.EnrollmentWindow, error) {
	const insert = `INSERT INTO enrollment_windows (id, is_open, message, updated_at)
        VALUES ($1, $2, '', $3)
        ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, windowRowID, defaultOpen, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("init enrollment window: %w", err)
	}
	const query = `SELECT id, is_open, message, updated_at FROM enrollment_windows WHERE id = $1`
	var window models.EnrollmentWindow
	if err := r.db.GetContext(ctx, &window, query, windowRowID); err != nil {
		return nil, fmt.Errorf("load enrollment window: %w", err)
	}
	return &window, nil
}

// Set updates the window state.
func (r *WindowRepository) Set(ctx context.Context, isOpen bool, message string) (*models.EnrollmentWindow, error) {
	const query = `INSERT INTO enrollment_windows (id, is_open, message, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET is_open = EXCLUDED.is_open, message = EXCLUDED.message, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, windowRowID, isOpen, message, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("set enrollment window: %w", err)
	}
	return r.Get(ctx, isOpen)
}
