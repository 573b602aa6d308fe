package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollsys-api/internal/models"
)

// HistoryRepository appends and reads the immutable audit trail. There
// are deliberately no update or delete methods.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create appends one history record.
func (r *HistoryRepository) Create(ctx context.Context, exec sqlx.ExtContext, log *models.HistoryLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO history_logs (id, actor_id, enlistment_id, action, message, created_at)
        VALUES (:id, :actor_id, :enlistment_id, :action, :message, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, log); err != nil {
		return fmt.Errorf("create history log: %w", err)
	}
	return nil
}

const historyEntryQuery = `SELECT h.id, h.actor_id, h.enlistment_id, h.action, h.message, h.created_at,
a.full_name AS actor_name, s.full_name AS student_name
FROM history_logs h
LEFT JOIN users a ON a.id = h.actor_id
LEFT JOIN enlistments e ON e.id = h.enlistment_id
LEFT JOIN users s ON s.id = e.student_id`

// ListRecent returns the newest entries first.
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	query := fmt.Sprintf(`%s ORDER BY h.created_at DESC LIMIT %d`, historyEntryQuery, limit)
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// ListByEnlistment returns an enlistment's trail, newest first.
func (r *HistoryRepository) ListByEnlistment(ctx context.Context, enlistmentID string) ([]models.HistoryEntry, error) {
	query := historyEntryQuery + ` WHERE h.enlistment_id = $1 ORDER BY h.created_at DESC`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, enlistmentID); err != nil {
		return nil, fmt.Errorf("list enlistment history: %w", err)
	}
	return entries, nil
}
