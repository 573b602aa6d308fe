package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollsys-api/internal/models"
	"github.com/noah-isme/enrollsys-api/internal/repository"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
)

// stubDB backs the txProvider in service tests. The mocked repositories
// never touch the connection, so only Begin/Commit/Rollback are matched.
func stubDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 25; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock")
}

type mockEnlistmentRepo struct {
	enlistments map[string]models.Enlistment
	activeTerms map[string]bool
	subjects    map[string][]string
	replaced    int
}

func termKey(studentID, schoolYear, semester string) string {
	return studentID + "|" + schoolYear + "|" + semester
}

func (m *mockEnlistmentRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enlistment, error) {
	if e, ok := m.enlistments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnlistmentRepo) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enlistment, error) {
	return m.FindByID(ctx, exec, id)
}

func (m *mockEnlistmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnlistmentDetail, error) {
	if e, ok := m.enlistments[id]; ok {
		return &models.EnlistmentDetail{Enlistment: e, StudentName: "Test Student"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnlistmentRepo) ExistsActiveForTerm(ctx context.Context, studentID, schoolYear, semester string) (bool, error) {
	return m.activeTerms[termKey(studentID, schoolYear, semester)], nil
}

func (m *mockEnlistmentRepo) Create(ctx context.Context, exec sqlx.ExtContext, enlistment *models.Enlistment) error {
	if m.enlistments == nil {
		m.enlistments = make(map[string]models.Enlistment)
	}
	if enlistment.ID == "" {
		enlistment.ID = "new-enlistment"
	}
	enlistment.CreatedAt = time.Now().UTC()
	m.enlistments[enlistment.ID] = *enlistment
	return nil
}

func (m *mockEnlistmentRepo) Transition(ctx context.Context, exec sqlx.ExtContext, t repository.StatusTransition) (bool, error) {
	e, ok := m.enlistments[t.ID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, from := range t.From {
		if e.Status == from {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	e.Status = t.To
	e.HoldReason = t.HoldReason
	if t.AdviserPreapprovedBy != nil {
		e.AdviserPreapprovedBy = t.AdviserPreapprovedBy
	}
	if t.FinanceCheckedBy != nil {
		e.FinanceCheckedBy = t.FinanceCheckedBy
	}
	if t.AdviserFinalApprovedBy != nil {
		e.AdviserFinalApprovedBy = t.AdviserFinalApprovedBy
	}
	m.enlistments[t.ID] = e
	return true, nil
}

func (m *mockEnlistmentRepo) List(ctx context.Context, filter models.EnlistmentFilter) ([]models.EnlistmentDetail, int, error) {
	var out []models.EnlistmentDetail
	for _, e := range m.enlistments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		out = append(out, models.EnlistmentDetail{Enlistment: e})
	}
	return out, len(out), nil
}

func (m *mockEnlistmentRepo) ReplaceSubjects(ctx context.Context, exec sqlx.ExtContext, enlistmentID string, subjectIDs []string) error {
	if m.subjects == nil {
		m.subjects = make(map[string][]string)
	}
	m.subjects[enlistmentID] = subjectIDs
	m.replaced++
	return nil
}

func (m *mockEnlistmentRepo) ListSubjects(ctx context.Context, enlistmentID string) ([]models.Subject, error) {
	var subjects []models.Subject
	for _, id := range m.subjects[enlistmentID] {
		subjects = append(subjects, models.Subject{ID: id, Code: id})
	}
	return subjects, nil
}

type mockPaymentRepo struct {
	payments map[string]*models.Payment
	saved    int
}

func (m *mockPaymentRepo) FindByEnlistment(ctx context.Context, exec sqlx.ExtContext, enlistmentID string) (*models.Payment, error) {
	if p, ok := m.payments[enlistmentID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) FindOrCreateLocked(ctx context.Context, exec sqlx.ExtContext, enlistmentID string) (*models.Payment, error) {
	if m.payments == nil {
		m.payments = make(map[string]*models.Payment)
	}
	if p, ok := m.payments[enlistmentID]; ok {
		return p, nil
	}
	p := &models.Payment{ID: "pay-" + enlistmentID, EnlistmentID: enlistmentID, Status: models.PaymentPending}
	m.payments[enlistmentID] = p
	return p, nil
}

func (m *mockPaymentRepo) Save(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error {
	if m.payments == nil {
		m.payments = make(map[string]*models.Payment)
	}
	m.payments[payment.EnlistmentID] = payment
	m.saved++
	return nil
}

type mockHistoryRepo struct {
	logs []models.HistoryLog
}

func (m *mockHistoryRepo) Create(ctx context.Context, exec sqlx.ExtContext, log *models.HistoryLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockHistoryRepo) actions() []string {
	out := make([]string, len(m.logs))
	for i, l := range m.logs {
		out[i] = l.Action
	}
	return out
}

type mockCatalogReader struct {
	missingSubjects map[string]bool
}

func (m *mockCatalogReader) CategoryExists(ctx context.Context, id string) (bool, error) {
	return id != "missing", nil
}

func (m *mockCatalogReader) ProgramExists(ctx context.Context, id string) (bool, error) {
	return id != "missing", nil
}

func (m *mockCatalogReader) SchoolYearLabelExists(ctx context.Context, label string) (bool, error) {
	return label != "unknown", nil
}

func (m *mockCatalogReader) SemesterNameExists(ctx context.Context, name string) (bool, error) {
	return name != "unknown", nil
}

func (m *mockCatalogReader) FindSubjectsByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	var subjects []models.Subject
	for _, id := range ids {
		if m.missingSubjects[id] {
			continue
		}
		subjects = append(subjects, models.Subject{ID: id, Code: id})
	}
	return subjects, nil
}

type mockWindowReader struct {
	closed  bool
	message string
}

func (m *mockWindowReader) Get(ctx context.Context, defaultOpen bool) (*models.EnrollmentWindow, error) {
	return &models.EnrollmentWindow{ID: "singleton", IsOpen: !m.closed, Message: m.message}, nil
}

type mockEligibility struct {
	result models.Eligibility
}

func (m *mockEligibility) Check(ctx context.Context, studentID string) (models.Eligibility, error) {
	return m.result, nil
}

func newEnlistmentService(t *testing.T, repo *mockEnlistmentRepo, payments *mockPaymentRepo, history *mockHistoryRepo, window *mockWindowReader, eligibility *mockEligibility) *EnlistmentService {
	t.Helper()
	return NewEnlistmentService(
		repo, payments, history, &mockCatalogReader{}, window, eligibility,
		stubDB(t), nil, validator.New(), zap.NewNop(), true,
	)
}

var (
	student = models.Actor{ID: "s1", Role: models.RoleStudent, Name: "Student"}
	adviser = models.Actor{ID: "a1", Role: models.RoleAdviser, Name: "Adviser"}
	finance = models.Actor{ID: "f1", Role: models.RoleFinance, Name: "Finance"}
)

func TestSubmitCreatesEnlistmentWithHistory(t *testing.T) {
	repo := &mockEnlistmentRepo{}
	history := &mockHistoryRepo{}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, history, &mockWindowReader{}, &mockEligibility{})

	detail, err := svc.Submit(context.Background(), student, SubmitEnlistmentRequest{SchoolYear: "2026-2027", Semester: "First"})
	require.NoError(t, err)
	assert.Equal(t, models.EnlistmentSubmitted, detail.Status)
	require.Len(t, history.logs, 1)
	assert.Equal(t, models.HistorySubmitted, history.logs[0].Action)
	assert.Equal(t, "Submitted enlistment for 2026-2027 First.", history.logs[0].Message)
	require.NotNil(t, history.logs[0].ActorID)
	assert.Equal(t, "s1", *history.logs[0].ActorID)
}

func TestSubmitRejectsDuplicateTerm(t *testing.T) {
	repo := &mockEnlistmentRepo{activeTerms: map[string]bool{termKey("s1", "2026-2027", "First"): true}}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, &mockHistoryRepo{}, &mockWindowReader{}, &mockEligibility{})

	_, err := svc.Submit(context.Background(), student, SubmitEnlistmentRequest{SchoolYear: "2026-2027", Semester: "First"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// A rejected enlistment does not block resubmission.
	repo.activeTerms[termKey("s1", "2026-2027", "First")] = false
	_, err = svc.Submit(context.Background(), student, SubmitEnlistmentRequest{SchoolYear: "2026-2027", Semester: "First"})
	require.NoError(t, err)
}

func TestSubmitBlockedWhenWindowClosed(t *testing.T) {
	svc := newEnlistmentService(t, &mockEnlistmentRepo{}, &mockPaymentRepo{}, &mockHistoryRepo{},
		&mockWindowReader{closed: true, message: "Enrollment opens June 1."}, &mockEligibility{})

	_, err := svc.Submit(context.Background(), student, SubmitEnlistmentRequest{SchoolYear: "2026-2027", Semester: "First"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrWindowClosed.Code, appErr.Code)
	assert.Equal(t, "Enrollment opens June 1.", appErr.Message)
}

func TestSubmitRequiresStudentRole(t *testing.T) {
	svc := newEnlistmentService(t, &mockEnlistmentRepo{}, &mockPaymentRepo{}, &mockHistoryRepo{}, &mockWindowReader{}, &mockEligibility{})

	_, err := svc.Submit(context.Background(), adviser, SubmitEnlistmentRequest{SchoolYear: "2026-2027", Semester: "First"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPreapproveForwardsToFinance(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", StudentID: "s1", Status: models.EnlistmentSubmitted},
	}}
	history := &mockHistoryRepo{}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, history, &mockWindowReader{}, &mockEligibility{})

	detail, err := svc.Preapprove(context.Background(), adviser, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnlistmentFinanceReview, detail.Status)
	require.NotNil(t, detail.AdviserPreapprovedBy)
	assert.Equal(t, "a1", *detail.AdviserPreapprovedBy)
	require.Len(t, history.logs, 1)
	assert.Equal(t, models.HistoryPreapproved, history.logs[0].Action)
	assert.Equal(t, "Pre-approved and forwarded to Admin/Finance.", history.logs[0].Message)
}

func TestPreapproveInvalidState(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", Status: models.EnlistmentEnrolled},
	}}
	history := &mockHistoryRepo{}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, history, &mockWindowReader{}, &mockEligibility{})

	_, err := svc.Preapprove(context.Background(), adviser, "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, history.logs)

	_, err = svc.Preapprove(context.Background(), adviser, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReturnForRevisionSetsHoldReason(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", Status: models.EnlistmentFinanceApproved},
	}}
	history := &mockHistoryRepo{}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, history, &mockWindowReader{}, &mockEligibility{})

	detail, err := svc.ReturnForRevision(context.Background(), adviser, "e1", ReturnEnlistmentRequest{Reason: "Missing documents."})
	require.NoError(t, err)
	assert.Equal(t, models.EnlistmentReturned, detail.Status)
	assert.Equal(t, "Missing documents.", detail.HoldReason)
	require.Len(t, history.logs, 1)
	assert.Equal(t, models.HistoryReturned, history.logs[0].Action)
}

func TestReturnForRevisionRequiresReason(t *testing.T) {
	svc := newEnlistmentService(t, &mockEnlistmentRepo{}, &mockPaymentRepo{}, &mockHistoryRepo{}, &mockWindowReader{}, &mockEligibility{})

	_, err := svc.ReturnForRevision(context.Background(), adviser, "e1", ReturnEnlistmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReviewOutcomes(t *testing.T) {
	cases := []struct {
		name       string
		result     models.Eligibility
		wantStatus models.EnlistmentStatus
		wantAction string
	}{
		{
			name:       "cleared",
			result:     models.Eligibility{OK: true, Code: models.HoldNone},
			wantStatus: models.EnlistmentFinanceApproved,
			wantAction: models.HistoryFinanceReviewed,
		},
		{
			name:       "balance hold",
			result:     models.Eligibility{OK: false, Code: models.HoldBalance, Reason: "Unpaid balance. Please settle your account first."},
			wantStatus: models.EnlistmentFinanceHoldBalance,
			wantAction: models.HistoryFinanceHeld,
		},
		{
			name:       "academic hold",
			result:     models.Eligibility{OK: false, Code: models.HoldAcademic, Reason: "Academic issue: previous term contains failed subject(s). Please consult your adviser."},
			wantStatus: models.EnlistmentFinanceHoldAcademic,
			wantAction: models.HistoryFinanceHeld,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
				"e1": {ID: "e1", StudentID: "s1", Status: models.EnlistmentFinanceReview},
			}}
			history := &mockHistoryRepo{}
			svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, history, &mockWindowReader{}, &mockEligibility{result: tc.result})

			detail, err := svc.Review(context.Background(), finance, "e1")
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, detail.Status)
			require.NotNil(t, detail.FinanceCheckedBy)
			assert.Equal(t, "f1", *detail.FinanceCheckedBy)
			if !tc.result.OK {
				assert.Equal(t, tc.result.Reason, detail.HoldReason)
			}
			require.Len(t, history.logs, 1)
			assert.Equal(t, tc.wantAction, history.logs[0].Action)
		})
	}
}

func TestReviewRequiresFinanceReviewState(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", Status: models.EnlistmentSubmitted},
	}}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, &mockHistoryRepo{}, &mockWindowReader{}, &mockEligibility{})

	_, err := svc.Review(context.Background(), finance, "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestFinalApproveAttachesSubjectsAndResetsPayment(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", StudentID: "s1", Status: models.EnlistmentFinanceApproved},
	}}
	payments := &mockPaymentRepo{payments: map[string]*models.Payment{
		"e1": {
			ID:               "p1",
			EnlistmentID:     "e1",
			EnlistmentAmount: decimal.NewFromInt(500),
			TuitionAmount:    decimal.NewFromInt(2000),
			Status:           models.PaymentFailed,
		},
	}}
	history := &mockHistoryRepo{}
	svc := newEnlistmentService(t, repo, payments, history, &mockWindowReader{}, &mockEligibility{})

	detail, err := svc.FinalApprove(context.Background(), adviser, "e1", FinalApproveRequest{SubjectIDs: []string{"sub1", "sub2"}})
	require.NoError(t, err)
	assert.Equal(t, models.EnlistmentApprovedForPayment, detail.Status)
	assert.Equal(t, []string{"sub1", "sub2"}, repo.subjects["e1"])

	payment := payments.payments["e1"]
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.True(t, payment.EnlistmentAmount.Equal(decimal.NewFromInt(500)), "fee amounts must survive final approval")
	assert.True(t, payment.TuitionAmount.Equal(decimal.NewFromInt(2000)))

	require.Len(t, history.logs, 1)
	assert.Equal(t, models.HistoryFinalApproved, history.logs[0].Action)
	assert.Equal(t, "Final approval complete. Subjects added.", history.logs[0].Message)
}

func TestFinalApproveReplacesSubjectListWholesale(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", Status: models.EnlistmentFinanceApproved},
	}}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, &mockHistoryRepo{}, &mockWindowReader{}, &mockEligibility{})

	_, err := svc.FinalApprove(context.Background(), adviser, "e1", FinalApproveRequest{SubjectIDs: []string{"sub1", "sub2"}})
	require.NoError(t, err)

	// Second call runs from APPROVED_FOR_PAYMENT, which the guard rejects;
	// move it back the way a revision round would.
	e := repo.enlistments["e1"]
	e.Status = models.EnlistmentFinanceApproved
	repo.enlistments["e1"] = e

	_, err = svc.FinalApprove(context.Background(), adviser, "e1", FinalApproveRequest{SubjectIDs: []string{"sub3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub3"}, repo.subjects["e1"])
	assert.Equal(t, 2, repo.replaced)
}

func TestFinalApproveValidation(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", Status: models.EnlistmentSubmitted},
	}}
	svc := NewEnlistmentService(repo, &mockPaymentRepo{}, &mockHistoryRepo{},
		&mockCatalogReader{missingSubjects: map[string]bool{"ghost": true}},
		&mockWindowReader{}, &mockEligibility{}, stubDB(t), nil, validator.New(), zap.NewNop(), true)

	_, err := svc.FinalApprove(context.Background(), adviser, "e1", FinalApproveRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.FinalApprove(context.Background(), adviser, "e1", FinalApproveRequest{SubjectIDs: []string{"ghost"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.FinalApprove(context.Background(), adviser, "e1", FinalApproveRequest{SubjectIDs: []string{"sub1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestListForcesStudentScope(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", StudentID: "s1", Status: models.EnlistmentSubmitted},
		"e2": {ID: "e2", StudentID: "other", Status: models.EnlistmentSubmitted},
	}}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, &mockHistoryRepo{}, &mockWindowReader{}, &mockEligibility{})

	list, pagination, err := svc.List(context.Background(), student, models.EnlistmentFilter{StudentID: "other"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].StudentID)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestDetailOwnershipGate(t *testing.T) {
	repo := &mockEnlistmentRepo{enlistments: map[string]models.Enlistment{
		"e1": {ID: "e1", StudentID: "other", Status: models.EnlistmentSubmitted},
	}}
	svc := newEnlistmentService(t, repo, &mockPaymentRepo{}, &mockHistoryRepo{}, &mockWindowReader{}, &mockEligibility{})

	_, err := svc.Detail(context.Background(), student, "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	snapshot, err := svc.Detail(context.Background(), finance, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", snapshot.ID)
	assert.Nil(t, snapshot.Payment)
}
