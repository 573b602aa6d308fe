package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/enrollsys-api/internal/models"
)

// EnlistmentRepository handles persistence of enlistments and their
// next-term subject lists.
type EnlistmentRepository struct {
	db *sqlx.DB
}

// NewEnlistmentRepository constructs the repository.
func NewEnlistmentRepository(db *sqlx.DB) *EnlistmentRepository {
	return &EnlistmentRepository{db: db}
}

func (r *EnlistmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const enlistmentColumns = `id, student_id, category_id, program_id, school_year, semester, status, notes, hold_reason,
adviser_preapproved_by, finance_checked_by, adviser_final_approved_by, created_at, updated_at`

// FindByID returns an enlistment by its ID.
func (r *EnlistmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enlistment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enlistments WHERE id = $1`, enlistmentColumns)
	var enlistment models.Enlistment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enlistment, query, id); err != nil {
		return nil, err
	}
	return &enlistment, nil
}

// LockByID loads an enlistment taking a row lock. Meant for use inside a
// workflow transaction so concurrent transitions serialize.
func (r *EnlistmentRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enlistment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enlistments WHERE id = $1 FOR UPDATE`, enlistmentColumns)
	var enlistment models.Enlistment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enlistment, query, id); err != nil {
		return nil, err
	}
	return &enlistment, nil
}

// FindDetailByID returns an enlistment with student and catalog context.
func (r *EnlistmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnlistmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.category_id, e.program_id, e.school_year, e.semester, e.status, e.notes, e.hold_reason,
        e.adviser_preapproved_by, e.finance_checked_by, e.adviser_final_approved_by, e.created_at, e.updated_at,
        u.full_name AS student_name, u.email AS student_email,
        c.name AS category_name, p.name AS program_name
        FROM enlistments e
        JOIN users u ON u.id = e.student_id
        LEFT JOIN categories c ON c.id = e.category_id
        LEFT JOIN programs p ON p.id = e.program_id
        WHERE e.id = $1`
	var detail models.EnlistmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActiveForTerm reports whether the student already has a
// non-rejected enlistment for the school year and semester.
func (r *EnlistmentRepository) ExistsActiveForTerm(ctx context.Context, studentID, schoolYear, semester string) (bool, error) {
	const query = `SELECT 1 FROM enlistments
        WHERE student_id = $1 AND school_year = $2 AND semester = $3 AND status <> $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, schoolYear, semester, models.EnlistmentRejected); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enlistment: %w", err)
	}
	return true, nil
}

// Create persists a new enlistment record.
func (r *EnlistmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enlistment *models.Enlistment) error {
	if enlistment.ID == "" {
		enlistment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enlistment.CreatedAt.IsZero() {
		enlistment.CreatedAt = now
	}
	enlistment.UpdatedAt = now
	if enlistment.Status == "" {
		enlistment.Status = models.EnlistmentSubmitted
	}
	const query = `INSERT INTO enlistments (id, student_id, category_id, program_id, school_year, semester, status, notes, hold_reason, created_at, updated_at)
        VALUES (:id, :student_id, :category_id, :program_id, :school_year, :semester, :status, :notes, :hold_reason, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, enlistment); err != nil {
		return fmt.Errorf("create enlistment: %w", err)
	}
	return nil
}

// StatusTransition describes a guarded state change. From lists the
// statuses the row must currently be in; the update is a no-op (and
// reports false) otherwise.
type StatusTransition struct {
	ID         string
	From       []models.EnlistmentStatus
	To         models.EnlistmentStatus
	HoldReason string

	AdviserPreapprovedBy   *string
	FinanceCheckedBy       *string
	AdviserFinalApprovedBy *string
}

// Transition applies a compare-and-swap status update. Returns false when
// the row was not in any of the expected source states.
func (r *EnlistmentRepository) Transition(ctx context.Context, exec sqlx.ExtContext, t StatusTransition) (bool, error) {
	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}
	const query = `UPDATE enlistments SET
        status = $2,
        hold_reason = $3,
        adviser_preapproved_by = COALESCE($4, adviser_preapproved_by),
        finance_checked_by = COALESCE($5, finance_checked_by),
        adviser_final_approved_by = COALESCE($6, adviser_final_approved_by),
        updated_at = $7
        WHERE id = $1 AND status = ANY($8)`
	res, err := r.exec(exec).ExecContext(ctx, query,
		t.ID, t.To, t.HoldReason,
		t.AdviserPreapprovedBy, t.FinanceCheckedBy, t.AdviserFinalApprovedBy,
		time.Now().UTC(), pq.Array(from))
	if err != nil {
		return false, fmt.Errorf("transition enlistment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition enlistment rows: %w", err)
	}
	return affected > 0, nil
}

// List returns enlistments filtered by the provided criteria, newest first.
func (r *EnlistmentRepository) List(ctx context.Context, filter models.EnlistmentFilter) ([]models.EnlistmentDetail, int, error) {
	base := `FROM enlistments e
JOIN users u ON u.id = e.student_id
LEFT JOIN categories c ON c.id = e.category_id
LEFT JOIN programs p ON p.id = e.program_id`
	clause := ""
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		clause += fmt.Sprintf(" AND e.student_id = $%d", len(args))
	}
	if filter.SchoolYear != "" {
		args = append(args, filter.SchoolYear)
		clause += fmt.Sprintf(" AND e.school_year = $%d", len(args))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		clause += fmt.Sprintf(" AND e.semester = $%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		clause += fmt.Sprintf(" AND e.status = ANY($%d)", len(args))
	}
	if clause != "" {
		clause = " WHERE " + clause[len(" AND"):]
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.category_id, e.program_id, e.school_year, e.semester, e.status, e.notes, e.hold_reason,
        e.adviser_preapproved_by, e.finance_checked_by, e.adviser_final_approved_by, e.created_at, e.updated_at,
        u.full_name AS student_name, u.email AS student_email,
        c.name AS category_name, p.name AS program_name
        %s ORDER BY e.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enlistments []models.EnlistmentDetail
	if err := r.db.SelectContext(ctx, &enlistments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enlistments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enlistments: %w", err)
	}
	return enlistments, total, nil
}

// ReplaceSubjects swaps the enlistment's subject list wholesale. Intended
// to run inside the final-approval transaction.
func (r *EnlistmentRepository) ReplaceSubjects(ctx context.Context, exec sqlx.ExtContext, enlistmentID string, subjectIDs []string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM enlistment_subjects WHERE enlistment_id = $1`, enlistmentID); err != nil {
		return fmt.Errorf("clear enlistment subjects: %w", err)
	}
	now := time.Now().UTC()
	for _, subjectID := range subjectIDs {
		row := models.EnlistmentSubject{
			ID:           uuid.NewString(),
			EnlistmentID: enlistmentID,
			SubjectID:    subjectID,
			CreatedAt:    now,
		}
		const insert = `INSERT INTO enlistment_subjects (id, enlistment_id, subject_id, created_at)
            VALUES (:id, :enlistment_id, :subject_id, :created_at)`
		if _, err := sqlx.NamedExecContext(ctx, target, insert, &row); err != nil {
			return fmt.Errorf("insert enlistment subject: %w", err)
		}
	}
	return nil
}

// ListSubjects returns the subjects attached to an enlistment.
func (r *EnlistmentRepository) ListSubjects(ctx context.Context, enlistmentID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.code, s.title, s.units
        FROM enlistment_subjects es
        JOIN subjects s ON s.id = es.subject_id
        WHERE es.enlistment_id = $1
        ORDER BY s.code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, enlistmentID); err != nil {
		return nil, fmt.Errorf("list enlistment subjects: %w", err)
	}
	return subjects, nil
}
