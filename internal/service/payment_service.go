package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollsys-api/internal/models"
	"github.com/noah-isme/enrollsys-api/internal/repository"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
	"github.com/noah-isme/enrollsys-api/pkg/export"
)

type balanceAdjuster interface {
	AdjustBalance(ctx context.Context, exec sqlx.ExtContext, studentID string, delta decimal.Decimal) error
}

type receiptRenderer interface {
	RenderReceipt(title string, lines []export.KeyValue) ([]byte, error)
}

// SetAmountsRequest carries the two fee amounts finance assigns.
type SetAmountsRequest struct {
	EnlistmentAmount decimal.Decimal `json:"enlistment_amount"`
	TuitionAmount    decimal.Decimal `json:"tuition_amount"`
}

// SubmitPaymentRequest is the student's payment claim.
type SubmitPaymentRequest struct {
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// RecordPaymentRequest is finance's confirmation of a received payment.
type RecordPaymentRequest struct {
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// PaymentService reconciles the two fee buckets of an enlistment. The
// enlistment fee must be fully settled before tuition payments are
// accepted; recording the payment that completes the tuition bucket also
// moves the enlistment to ENROLLED.
type PaymentService struct {
	enlistments enlistmentRepository
	payments    paymentInitializer
	accounts    balanceAdjuster
	history     historyWriter
	tx          txProvider
	metrics     transitionRecorder
	pdf         receiptRenderer
	logger      *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(
	enlistments enlistmentRepository,
	payments paymentInitializer,
	accounts balanceAdjuster,
	history historyWriter,
	tx txProvider,
	metrics transitionRecorder,
	pdf receiptRenderer,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		enlistments: enlistments,
		payments:    payments,
		accounts:    accounts,
		history:     history,
		tx:          tx,
		metrics:     metrics,
		pdf:         pdf,
		logger:      logger,
	}
}

// SetAmounts assigns the due amounts for both fee buckets. The combined
// "amount" field always mirrors the tuition amount; the bucket fields
// are the source of truth.
func (s *PaymentService) SetAmounts(ctx context.Context, actor models.Actor, enlistmentID string, req SetAmountsRequest) (*models.Payment, error) {
	if actor.Role != models.RoleFinance {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only finance may set fee amounts")
	}
	if !req.EnlistmentAmount.IsPositive() || !req.TuitionAmount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fee amounts must be greater than zero")
	}

	var payment *models.Payment
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.enlistments.FindByID(ctx, tx, enlistmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enlistment not found")
			}
			return err
		}

		p, err := s.payments.FindOrCreateLocked(ctx, tx, enlistmentID)
		if err != nil {
			return err
		}
		p.EnlistmentAmount = req.EnlistmentAmount
		p.TuitionAmount = req.TuitionAmount
		p.Amount = req.TuitionAmount
		if err := s.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		payment = p

		return s.history.Create(ctx, tx, &models.HistoryLog{
			ActorID:      &actor.ID,
			EnlistmentID: &enlistmentID,
			Action:       models.HistoryAmountSet,
			Message: fmt.Sprintf("Set enlistment fee=%s, tuition fee=%s.",
				req.EnlistmentAmount.StringFixed(2), req.TuitionAmount.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(models.HistoryAmountSet)
	return payment, nil
}

// SubmitPayment records the student's claim that a payment was made. It
// never touches the paid buckets; finance confirms via RecordPayment.
func (s *PaymentService) SubmitPayment(ctx context.Context, actor models.Actor, enlistmentID string, req SubmitPaymentRequest) (*models.Payment, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may submit a payment")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment amount must be greater than zero")
	}

	var payment *models.Payment
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		enlistment, err := s.enlistments.LockByID(ctx, tx, enlistmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enlistment not found")
			}
			return err
		}
		if enlistment.StudentID != actor.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "not your enlistment")
		}
		if enlistment.Status != models.EnlistmentApprovedForPayment {
			return appErrors.Clone(appErrors.ErrInvalidState, "enlistment is not approved for payment")
		}

		p, err := s.payments.FindOrCreateLocked(ctx, tx, enlistmentID)
		if err != nil {
			return err
		}

		kind := classifyKind(req.Kind, req.Reference)
		if err := validateBucket(p, kind); err != nil {
			return err
		}
		remaining := p.DueFor(kind).Sub(p.PaidFor(kind))
		if req.Amount.GreaterThan(remaining) {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("payment exceeds the remaining %s due of %s", strings.ToLower(string(kind)), remaining.StringFixed(2)))
		}

		p.SubmittedAmount = req.Amount
		p.Reference = req.Reference
		p.Status = models.PaymentSubmitted
		if err := s.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		payment = p

		return s.history.Create(ctx, tx, &models.HistoryLog{
			ActorID:      &actor.ID,
			EnlistmentID: &enlistmentID,
			Action:       models.HistoryPaymentRecorded,
			Message: fmt.Sprintf("Payment of %s (%s) submitted for finance approval. Ref: %s",
				req.Amount.StringFixed(2), kind, req.Reference),
		})
	})
	if err != nil {
		return nil, err
	}
	s.observe(models.HistoryPaymentRecorded)
	return payment, nil
}

// RecordPayment applies a confirmed payment to one fee bucket. The paid
// amount is clamped to the bucket's due amount; any excess is posted as
// credit (negative balance) on the student's finance account. Filling
// the enlistment bucket unlocks tuition; filling the tuition bucket
// marks the payment SUCCESS and enrolls the student.
func (s *PaymentService) RecordPayment(ctx context.Context, actor models.Actor, enlistmentID string, req RecordPaymentRequest) (*models.PaymentResult, error) {
	if actor.Role != models.RoleFinance {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only finance may record a payment")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment amount must be greater than zero")
	}

	var result *models.PaymentResult
	var enrolled bool
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		enlistment, err := s.enlistments.LockByID(ctx, tx, enlistmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enlistment not found")
			}
			return err
		}
		if enlistment.Status != models.EnlistmentApprovedForPayment {
			return appErrors.Clone(appErrors.ErrInvalidState, "enlistment is not approved for payment")
		}

		p, err := s.payments.FindOrCreateLocked(ctx, tx, enlistmentID)
		if err != nil {
			return err
		}

		kind := classifyKind(req.Kind, req.Reference)
		if err := validateBucket(p, kind); err != nil {
			return err
		}

		due := p.DueFor(kind)
		remaining := due.Sub(p.PaidFor(kind))
		overpayment := decimal.Zero
		if req.Amount.GreaterThan(remaining) {
			overpayment = req.Amount.Sub(remaining)
		}
		applied := decimal.Min(req.Amount, remaining)
		newPaid := p.PaidFor(kind).Add(applied)

		if kind == models.KindEnlistment {
			p.EnlistmentPaidAmount = newPaid
			if newPaid.GreaterThanOrEqual(due) {
				p.EnlistmentPaid = true
			}
		} else {
			p.TuitionPaidAmount = newPaid
		}

		fullyPaid := newPaid.GreaterThanOrEqual(due)
		tuitionComplete := kind == models.KindTuition && fullyPaid
		if tuitionComplete {
			p.Status = models.PaymentSuccess
		} else {
			p.Status = models.PaymentPending
		}
		p.SubmittedAmount = req.Amount
		if req.Reference != "" {
			p.Reference = req.Reference
		}
		if err := s.payments.Save(ctx, tx, p); err != nil {
			return err
		}

		if overpayment.IsPositive() {
			if err := s.accounts.AdjustBalance(ctx, tx, enlistment.StudentID, overpayment.Neg()); err != nil {
				return err
			}
		}

		message := fmt.Sprintf("Recorded %s payment of %s.", strings.ToLower(string(kind)), req.Amount.StringFixed(2))
		if overpayment.IsPositive() {
			message += fmt.Sprintf(" Overpayment of %s credited to the student's account.", overpayment.StringFixed(2))
		}
		if err := s.history.Create(ctx, tx, &models.HistoryLog{
			ActorID:      &actor.ID,
			EnlistmentID: &enlistmentID,
			Action:       models.HistoryPaymentRecorded,
			Message:      message,
		}); err != nil {
			return err
		}

		status := enlistment.Status
		if tuitionComplete {
			ok, err := s.enlistments.Transition(ctx, tx, repository.StatusTransition{
				ID:   enlistmentID,
				From: []models.EnlistmentStatus{models.EnlistmentApprovedForPayment},
				To:   models.EnlistmentEnrolled,
			})
			if err != nil {
				return err
			}
			if !ok {
				return appErrors.Clone(appErrors.ErrInvalidState, "enlistment is not approved for payment")
			}
			status = models.EnlistmentEnrolled
			enrolled = true
			if err := s.history.Create(ctx, tx, &models.HistoryLog{
				ActorID:      &actor.ID,
				EnlistmentID: &enlistmentID,
				Action:       models.HistoryEnrolled,
				Message:      "Enrollment confirmed by finance.",
			}); err != nil {
				return err
			}
		}

		result = &models.PaymentResult{
			Payment:     p,
			Kind:        kind,
			FullyPaid:   fullyPaid,
			Overpayment: overpayment,
			NewStatus:   status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observe(models.HistoryPaymentRecorded)
	if enrolled {
		s.observe(models.HistoryEnrolled)
	}
	return result, nil
}

// Receipt renders the payment state of an enlistment as a PDF. Students
// may only fetch their own receipt.
func (s *PaymentService) Receipt(ctx context.Context, actor models.Actor, enlistmentID string) ([]byte, error) {
	detail, err := s.enlistments.FindDetailByID(ctx, enlistmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enlistment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enlistment")
	}
	if actor.Role == models.RoleStudent && detail.StudentID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your enlistment")
	}

	payment, err := s.payments.FindByEnlistment(ctx, nil, enlistmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no payment record for this enlistment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	lines := []export.KeyValue{
		{Label: "Student", Value: detail.StudentName},
		{Label: "Term", Value: fmt.Sprintf("%s %s", detail.SchoolYear, detail.Semester)},
		{Label: "Status", Value: string(detail.Status)},
		{Label: "Enlistment fee due", Value: payment.EnlistmentAmount.StringFixed(2)},
		{Label: "Enlistment fee paid", Value: payment.EnlistmentPaidAmount.StringFixed(2)},
		{Label: "Tuition fee due", Value: payment.TuitionAmount.StringFixed(2)},
		{Label: "Tuition fee paid", Value: payment.TuitionPaidAmount.StringFixed(2)},
		{Label: "Payment status", Value: string(payment.Status)},
		{Label: "Reference", Value: payment.Reference},
	}
	data, err := s.pdf.RenderReceipt("Payment Receipt", lines)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return data, nil
}

// classifyKind resolves the fee bucket: an explicit kind wins; otherwise
// a reference mentioning "DOWNPAYMENT" means the enlistment fee, and
// anything else is tuition.
func classifyKind(explicit, reference string) models.PaymentKind {
	switch models.PaymentKind(strings.ToUpper(strings.TrimSpace(explicit))) {
	case models.KindEnlistment:
		return models.KindEnlistment
	case models.KindTuition:
		return models.KindTuition
	}
	if strings.Contains(strings.ToUpper(reference), "DOWNPAYMENT") {
		return models.KindEnlistment
	}
	return models.KindTuition
}

// validateBucket enforces the payment gates: a zero due amount means the
// fee is not set yet, and tuition stays locked until the enlistment fee
// is settled.
func validateBucket(p *models.Payment, kind models.PaymentKind) error {
	if kind == models.KindTuition && !p.EnlistmentPaid {
		return appErrors.Clone(appErrors.ErrValidation, "the enlistment fee must be settled before tuition payments")
	}
	if !p.DueFor(kind).IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("the %s fee has not been set by finance yet", strings.ToLower(string(kind))))
	}
	return nil
}

func (s *PaymentService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
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

func (s *PaymentService) observe(action string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(action)
	}
}
