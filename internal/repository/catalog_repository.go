package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollsys-api/internal/models"
)

// CatalogRepository serves the reference data the workflow consumes:
// subjects, categories, programs, school years, and semesters.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListSubjects returns all subjects ordered by code.
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, code, title, units FROM subjects ORDER BY code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindSubjectsByIDs returns the subset of subjects matching the ids.
func (r *CatalogRepository) FindSubjectsByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, code, title, units FROM subjects WHERE id IN (%s)`, strings.Join(placeholders, ","))
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("find subjects: %w", err)
	}
	return subjects, nil
}

// ListCategories returns active categories by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, name, active FROM categories WHERE active ORDER BY name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListPrograms returns active programs by name.
func (r *CatalogRepository) ListPrograms(ctx context.Context) ([]models.Program, error) {
	const query = `SELECT id, name, active FROM programs WHERE active ORDER BY name ASC`
	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, query); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// ListSchoolYears returns active school years, newest label first.
func (r *CatalogRepository) ListSchoolYears(ctx context.Context) ([]models.SchoolYear, error) {
	const query = `SELECT id, label, active FROM school_years WHERE active ORDER BY label DESC`
	var years []models.SchoolYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list school years: %w", err)
	}
	return years, nil
}

// ListSemesters returns active semesters by name.
func (r *CatalogRepository) ListSemesters(ctx context.Context) ([]models.Semester, error) {
	const query = `SELECT id, name, active FROM semesters WHERE active ORDER BY name ASC`
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// CategoryExists reports whether an active category id exists.
func (r *CatalogRepository) CategoryExists(ctx context.Context, id string) (bool, error) {
	return r.existsIn(ctx, "categories", id)
}

// ProgramExists reports whether an active program id exists.
func (r *CatalogRepository) ProgramExists(ctx context.Context, id string) (bool, error) {
	return r.existsIn(ctx, "programs", id)
}

// SchoolYearLabelExists reports whether a school-year label is known.
func (r *CatalogRepository) SchoolYearLabelExists(ctx context.Context, label string) (bool, error) {
	const query = `SELECT 1 FROM school_years WHERE label = $1 AND active LIMIT 1`
	return r.existsQuery(ctx, query, label)
}

// SemesterNameExists reports whether a semester name is known.
func (r *CatalogRepository) SemesterNameExists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT 1 FROM semesters WHERE name = $1 AND active LIMIT 1`
	return r.existsQuery(ctx, query, name)
}

func (r *CatalogRepository) existsIn(ctx context.Context, table, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1 AND active LIMIT 1`, table)
	return r.existsQuery(ctx, query, id)
}

func (r *CatalogRepository) existsQuery(ctx context.Context, query string, arg interface{}) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("catalog lookup: %w", err)
	}
	return true, nil
}

// PreviousSubjectRepository reads prior-term subject records consumed by
// the finance eligibility check.
type PreviousSubjectRepository struct {
	db *sqlx.DB
}

// NewPreviousSubjectRepository constructs the repository.
func NewPreviousSubjectRepository(db *sqlx.DB) *PreviousSubjectRepository {
	return &PreviousSubjectRepository{db: db}
}

// HasFailed reports whether any recorded previous-term subject is failed.
func (r *PreviousSubjectRepository) HasFailed(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT 1 FROM previous_term_subjects WHERE student_id = $1 AND NOT passed LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check failed subjects: %w", err)
	}
	return true, nil
}

// ListByStudent returns the student's previous-term records.
func (r *PreviousSubjectRepository) ListByStudent(ctx context.Context, studentID string) ([]models.PreviousTermSubject, error) {
	const query = `SELECT id, student_id, school_year, semester, subject_id, grade, passed
        FROM previous_term_subjects WHERE student_id = $1
        ORDER BY school_year DESC, semester ASC`
	var subjects []models.PreviousTermSubject
	if err := r.db.SelectContext(ctx, &subjects, query, studentID); err != nil {
		return nil, fmt.Errorf("list previous subjects: %w", err)
	}
	return subjects, nil
}
