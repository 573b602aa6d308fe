package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollsys-api/internal/models"
)

func newEnlistmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var enlistmentCols = []string{
	"id", "student_id", "category_id", "program_id", "school_year", "semester", "status", "notes", "hold_reason",
	"adviser_preapproved_by", "finance_checked_by", "adviser_final_approved_by", "created_at", "updated_at",
}

func TestEnlistmentRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newEnlistmentRepoMock(t)
	defer cleanup()

	repo := NewEnlistmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enlistments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enlistment := &models.Enlistment{
		StudentID:  "student-1",
		SchoolYear: "2026-2027",
		Semester:   "First",
	}
	require.NoError(t, repo.Create(context.Background(), nil, enlistment))
	require.NotEmpty(t, enlistment.ID)
	require.Equal(t, models.EnlistmentSubmitted, enlistment.Status)

	rows := sqlmock.NewRows(enlistmentCols).
		AddRow(enlistment.ID, "student-1", nil, nil, "2026-2027", "First", "SUBMITTED", "", "", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id")).
		WithArgs(enlistment.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), nil, enlistment.ID)
	require.NoError(t, err)
	require.Equal(t, "student-1", found.StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnlistmentRepositoryLockByID(t *testing.T) {
	db, mock, cleanup := newEnlistmentRepoMock(t)
	defer cleanup()

	repo := NewEnlistmentRepository(db)
	rows := sqlmock.NewRows(enlistmentCols).
		AddRow("enl-1", "student-1", nil, nil, "2026-2027", "First", "FINANCE_REVIEW", "", "", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .+ FROM enlistments WHERE id = .+ FOR UPDATE").
		WithArgs("enl-1").
		WillReturnRows(rows)

	found, err := repo.LockByID(context.Background(), nil, "enl-1")
	require.NoError(t, err)
	require.Equal(t, models.EnlistmentFinanceReview, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnlistmentRepositoryTransition(t *testing.T) {
	db, mock, cleanup := newEnlistmentRepoMock(t)
	defer cleanup()

	repo := NewEnlistmentRepository(db)
	adviser := "adviser-1"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enlistments SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Transition(context.Background(), nil, StatusTransition{
		ID:                   "enl-1",
		From:                 []models.EnlistmentStatus{models.EnlistmentSubmitted, models.EnlistmentReturned},
		To:                   models.EnlistmentFinanceReview,
		AdviserPreapprovedBy: &adviser,
	})
	require.NoError(t, err)
	require.True(t, ok)

	// No row in an expected source state: zero rows affected, not an error.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enlistments SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Transition(context.Background(), nil, StatusTransition{
		ID:   "enl-1",
		From: []models.EnlistmentStatus{models.EnlistmentSubmitted},
		To:   models.EnlistmentFinanceReview,
	})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnlistmentRepositoryExistsActiveForTerm(t *testing.T) {
	db, mock, cleanup := newEnlistmentRepoMock(t)
	defer cleanup()

	repo := NewEnlistmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enlistments")).
		WithArgs("student-1", "2026-2027", "First", "REJECTED").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActiveForTerm(context.Background(), "student-1", "2026-2027", "First")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enlistments")).
		WithArgs("student-2", "2026-2027", "First", "REJECTED").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsActiveForTerm(context.Background(), "student-2", "2026-2027", "First")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnlistmentRepositoryReplaceSubjects(t *testing.T) {
	db, mock, cleanup := newEnlistmentRepoMock(t)
	defer cleanup()

	repo := NewEnlistmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enlistment_subjects")).
		WithArgs("enl-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enlistment_subjects")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enlistment_subjects")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.ReplaceSubjects(context.Background(), nil, "enl-1", []string{"sub-1", "sub-2"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnlistmentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newEnlistmentRepoMock(t)
	defer cleanup()

	repo := NewEnlistmentRepository(db)
	cols := append(append([]string{}, enlistmentCols...), "student_name", "student_email", "category_name", "program_name")
	rows := sqlmock.NewRows(cols).
		AddRow("enl-1", "student-1", nil, nil, "2026-2027", "First", "SUBMITTED", "", "", nil, nil, nil, time.Now(), time.Now(),
			"Juan Dela Cruz", "juan@school.edu", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.student_id")).
		WithArgs("student-1", sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("student-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enlistments, total, err := repo.List(context.Background(), models.EnlistmentFilter{
		StudentID: "student-1",
		Statuses:  []models.EnlistmentStatus{models.EnlistmentSubmitted},
		Page:      1,
		PageSize:  20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, enlistments, 1)
	require.Equal(t, "Juan Dela Cruz", enlistments[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}
