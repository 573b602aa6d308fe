package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollsys-api/internal/models"
	"github.com/noah-isme/enrollsys-api/internal/repository"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
)

type enlistmentRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enlistment, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enlistment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnlistmentDetail, error)
	ExistsActiveForTerm(ctx context.Context, studentID, schoolYear, semester string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enlistment *models.Enlistment) error
	Transition(ctx context.Context, exec sqlx.ExtContext, t repository.StatusTransition) (bool, error)
	List(ctx context.Context, filter models.EnlistmentFilter) ([]models.EnlistmentDetail, int, error)
	ReplaceSubjects(ctx context.Context, exec sqlx.ExtContext, enlistmentID string, subjectIDs []string) error
	ListSubjects(ctx context.Context, enlistmentID string) ([]models.Subject, error)
}

type historyWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, log *models.HistoryLog) error
}

type paymentInitializer interface {
	FindByEnlistment(ctx context.Context, exec sqlx.ExtContext, enlistmentID string) (*models.Payment, error)
	FindOrCreateLocked(ctx context.Context, exec sqlx.ExtContext, enlistmentID string) (*models.Payment, error)
	Save(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error
}

type catalogReader interface {
	CategoryExists(ctx context.Context, id string) (bool, error)
	ProgramExists(ctx context.Context, id string) (bool, error)
	SchoolYearLabelExists(ctx context.Context, label string) (bool, error)
	SemesterNameExists(ctx context.Context, name string) (bool, error)
	FindSubjectsByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type windowReader interface {
	Get(ctx context.Context, defaultOpen bool) (*models.EnrollmentWindow, error)
}

type eligibilityChecker interface {
	Check(ctx context.Context, studentID string) (models.Eligibility, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type transitionRecorder interface {
	ObserveTransition(action string)
}

// SubmitEnlistmentRequest is the student submission payload.
type SubmitEnlistmentRequest struct {
	SchoolYear string  `json:"school_year" validate:"required"`
	Semester   string  `json:"semester" validate:"required"`
	CategoryID *string `json:"category_id,omitempty"`
	ProgramID  *string `json:"program_id,omitempty"`
	Notes      string  `json:"notes"`
}

// ReturnEnlistmentRequest carries the adviser's revision reason.
type ReturnEnlistmentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// FinalApproveRequest carries the next-term subject selection.
type FinalApproveRequest struct {
	SubjectIDs []string `json:"subject_ids" validate:"required,min=1,dive,required"`
}

// EnlistmentService drives the enlistment state machine. Every mutating
// operation runs as one transaction: the status change, its side writes,
// and the history record commit together or not at all.
type EnlistmentService struct {
	repo        enlistmentRepository
	payments    paymentInitializer
	history     historyWriter
	catalog     catalogReader
	window      windowReader
	eligibility eligibilityChecker
	tx          txProvider
	metrics     transitionRecorder
	validator   *validator.Validate
	logger      *zap.Logger

	windowDefaultOpen bool
}

// NewEnlistmentService constructs EnlistmentService.
func NewEnlistmentService(
	repo enlistmentRepository,
	payments paymentInitializer,
	history historyWriter,
	catalog catalogReader,
	window windowReader,
	eligibility eligibilityChecker,
	tx txProvider,
	metrics transitionRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
	windowDefaultOpen bool,
) *EnlistmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnlistmentService{
		repo:              repo,
		payments:          payments,
		history:           history,
		catalog:           catalog,
		window:            window,
		eligibility:       eligibility,
		tx:                tx,
		metrics:           metrics,
		validator:         validate,
		logger:            logger,
		windowDefaultOpen: windowDefaultOpen,
	}
}

// Submit creates a new enlistment in SUBMITTED state for the acting
// student. At most one non-rejected enlistment may exist per student and
// term; a rejected one may be re-applied for.
func (s *EnlistmentService) Submit(ctx context.Context, actor models.Actor, req SubmitEnlistmentRequest) (*models.EnlistmentDetail, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may submit an enlistment")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enlistment payload")
	}

	window, err := s.window.Get(ctx, s.windowDefaultOpen)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment window")
	}
	if !window.IsOpen {
		msg := window.Message
		if msg == "" {
			msg = "enrollment window is closed"
		}
		return nil, appErrors.Clone(appErrors.ErrWindowClosed, msg)
	}

	if ok, err := s.catalog.SchoolYearLabelExists(ctx, req.SchoolYear); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate school year")
	} else if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown school year")
	}
	if ok, err := s.catalog.SemesterNameExists(ctx, req.Semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate semester")
	} else if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	if req.CategoryID != nil {
		if ok, err := s.catalog.CategoryExists(ctx, *req.CategoryID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate category")
		} else if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
	}
	if req.ProgramID != nil {
		if ok, err := s.catalog.ProgramExists(ctx, *req.ProgramID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate program")
		} else if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
	}

	exists, err := s.repo.ExistsActiveForTerm(ctx, actor.ID, req.SchoolYear, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enlistments")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			"you already submitted an enlistment for this term; you may apply again only if it was rejected")
	}

	enlistment := &models.Enlistment{
		StudentID:  actor.ID,
		CategoryID: req.CategoryID,
		ProgramID:  req.ProgramID,
		SchoolYear: req.SchoolYear,
		Semester:   req.Semester,
		Status:     models.EnlistmentSubmitted,
		Notes:      req.Notes,
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, enlistment); err != nil {
			return err
		}
		return s.history.Create(ctx, tx, &models.HistoryLog{
			ActorID:      &actor.ID,
			EnlistmentID: &enlistment.ID,
			Action:       models.HistorySubmitted,
			Message:      fmt.Sprintf("Submitted enlistment for %s %s.", req.SchoolYear, req.Semester),
		})
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit enlistment")
	}
	s.observe(models.HistorySubmitted)

	return s.detail(ctx, enlistment.ID)
}

// Preapprove forwards a submitted or returned enlistment to finance.
func (s *EnlistmentService) Preapprove(ctx context.Context, actor models.Actor, id string) (*models.EnlistmentDetail, error) {
	if actor.Role != models.RoleAdviser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only advisers may pre-approve")
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.repo.Transition(ctx, tx, repository.StatusTransition{
			ID:                   id,
			From:                 []models.EnlistmentStatus{models.EnlistmentSubmitted, models.EnlistmentReturned},
			To:                   models.EnlistmentFinanceReview,
			AdviserPreapprovedBy: &actor.ID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionFailure(ctx, tx, id, "enlistment is not waiting for adviser pre-approval")
		}
		return s.history.Create(ctx, tx, &models.HistoryLog{
			ActorID:      &actor.ID,
			EnlistmentID: &id,
			Action:       models.HistoryPreapproved,
			Message:      "Pre-approved and forwarded to Admin/Finance.",
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(models.HistoryPreapproved)

	return s.detail(ctx, id)
}

// ReturnForRevision sends an enlistment back to the student with a reason.
func (s *EnlistmentService) ReturnForRevision(ctx context.Context, actor models.Actor, id string, req ReturnEnlistmentRequest) (*models.EnlistmentDetail, error) {
	if actor.Role != models.RoleAdviser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only advisers may return an enlistment")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a revision reason is required")
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.repo.Transition(ctx, tx, repository.StatusTransition{
			ID:         id,
			From:       []models.EnlistmentStatus{models.EnlistmentSubmitted, models.EnlistmentFinanceApproved},
			To:         models.EnlistmentReturned,
			HoldReason: req.Reason,
		})
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionFailure(ctx, tx, id, "enlistment is not in a state that can be returned")
		}
		return s.history.Create(ctx, tx, &models.HistoryLog{
			ActorID:      &actor.ID,
			EnlistmentID: &id,
			Action:       models.HistoryReturned,
			Message:      req.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(models.HistoryReturned)

	return s.detail(ctx, id)
}

// Review runs the finance clearance check and moves the enlistment to
// FINANCE_APPROVED or one of the hold states. The hold state is picked
// from the eligibility hold code, never from the reason text.
func (s *EnlistmentService) Review(ctx context.Context, actor models.Actor, id string) (*models.EnlistmentDetail, error) {
	if actor.Role != models.RoleFinance {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only finance may review an enlistment")
	}

	var action string
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		enlistment, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enlistment not found")
			}
			return err
		}
		if enlistment.Status != models.EnlistmentFinanceReview {
			return appErrors.Clone(appErrors.ErrInvalidState, "enlistment is not waiting for finance review")
		}

		eligibility, err := s.eligibility.Check(ctx, enlistment.StudentID)
		if err != nil {
			return err
		}

		transition := repository.StatusTransition{
			ID:               id,
			From:             []models.EnlistmentStatus{models.EnlistmentFinanceReview},
			FinanceCheckedBy: &actor.ID,
		}
		entry := models.HistoryLog{ActorID: &actor.ID, EnlistmentID: &id}

		if eligibility.OK {
			transition.To = models.EnlistmentFinanceApproved
			entry.Action = models.HistoryFinanceReviewed
			entry.Message = "Cleared by Admin/Finance."
		} else {
			if eligibility.Code == models.HoldBalance {
				transition.To = models.EnlistmentFinanceHoldBalance
			} else {
				transition.To = models.EnlistmentFinanceHoldAcademic
			}
			transition.HoldReason = eligibility.Reason
			entry.Action = models.HistoryFinanceHeld
			entry.Message = eligibility.Reason
		}

		ok, err := s.repo.Transition(ctx, tx, transition)
		if err != nil {
			return err
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrInvalidState, "enlistment is not waiting for finance review")
		}
		action = entry.Action
		return s.history.Create(ctx, tx, &entry)
	})
	if err != nil {
		return nil, err
	}
	s.observe(action)

	return s.detail(ctx, id)
}

// FinalApprove attaches the next-term subject list and opens the
// enlistment for payment. The subject list replaces any previous one
// wholesale. The payment record is created or reset to PENDING without
// touching fee amounts finance may already have set.
func (s *EnlistmentService) FinalApprove(ctx context.Context, actor models.Actor, id string, req FinalApproveRequest) (*models.EnlistmentDetail, error) {
	if actor.Role != models.RoleAdviser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only advisers may finalize an enlistment")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "at least one subject is required")
	}

	subjects, err := s.catalog.FindSubjectsByIDs(ctx, req.SubjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if len(subjects) != len(uniqueStrings(req.SubjectIDs)) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more subjects do not exist")
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.repo.Transition(ctx, tx, repository.StatusTransition{
			ID:                     id,
			From:                   []models.EnlistmentStatus{models.EnlistmentFinanceApproved},
			To:                     models.EnlistmentApprovedForPayment,
			AdviserFinalApprovedBy: &actor.ID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return s.transitionFailure(ctx, tx, id, "enlistment must be cleared by finance before final approval")
		}

		if err := s.repo.ReplaceSubjects(ctx, tx, id, uniqueStrings(req.SubjectIDs)); err != nil {
			return err
		}

		payment, err := s.payments.FindOrCreateLocked(ctx, tx, id)
		if err != nil {
			return err
		}
		payment.Status = models.PaymentPending
		if err := s.payments.Save(ctx, tx, payment); err != nil {
			return err
		}

		return s.history.Create(ctx, tx, &models.HistoryLog{
			ActorID:      &actor.ID,
			EnlistmentID: &id,
			Action:       models.HistoryFinalApproved,
			Message:      "Final approval complete. Subjects added.",
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(models.HistoryFinalApproved)

	return s.detail(ctx, id)
}

// List returns enlistments for dashboards. Students only ever see their
// own regardless of the requested filter.
func (s *EnlistmentService) List(ctx context.Context, actor models.Actor, filter models.EnlistmentFilter) ([]models.EnlistmentDetail, *models.Pagination, error) {
	if actor.Role == models.RoleStudent {
		filter.StudentID = actor.ID
	}
	enlistments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enlistments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enlistments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Detail returns the full enlistment snapshot. Students may only view
// their own records.
func (s *EnlistmentService) Detail(ctx context.Context, actor models.Actor, id string) (*models.EnlistmentSnapshot, error) {
	detail, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent && detail.StudentID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your enlistment")
	}

	subjects, err := s.repo.ListSubjects(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enlistment subjects")
	}

	snapshot := &models.EnlistmentSnapshot{EnlistmentDetail: *detail, Subjects: subjects}
	payment, err := s.payments.FindByEnlistment(ctx, nil, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
		}
	} else {
		snapshot.Payment = payment
	}
	return snapshot, nil
}

func (s *EnlistmentService) detail(ctx context.Context, id string) (*models.EnlistmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enlistment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enlistment")
	}
	return detail, nil
}

// transitionFailure reports why a compare-and-swap transition matched no
// row: the record is either missing or in the wrong state.
func (s *EnlistmentService) transitionFailure(ctx context.Context, tx *sqlx.Tx, id, message string) error {
	if _, err := s.repo.FindByID(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enlistment not found")
		}
		return err
	}
	return appErrors.Clone(appErrors.ErrInvalidState, message)
}

func (s *EnlistmentService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

func (s *EnlistmentService) observe(action string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(action)
	}
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
