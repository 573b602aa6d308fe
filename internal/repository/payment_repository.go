package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/enrollsys-api/internal/models"
)

// PaymentRepository handles persistence of the one-to-one payment record
// per enlistment.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const paymentColumns = `id, enlistment_id, enlistment_amount, tuition_amount, enlistment_paid_amount,
tuition_paid_amount, enlistment_paid, amount, submitted_amount, status, reference, created_at, updated_at`

// FindByEnlistment returns the payment record for an enlistment.
func (r *PaymentRepository) FindByEnlistment(ctx context.Context, exec sqlx.ExtContext, enlistmentID string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE enlistment_id = $1`, paymentColumns)
	var payment models.Payment
	if err := sqlx.GetContext(ctx, r.exec(exec), &payment, query, enlistmentID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindOrCreateLocked returns the payment row for the enlistment, creating
// a zeroed record first when none exists. The select takes a row lock, so
// inside a transaction concurrent reconciliations serialize. The unique
// constraint on enlistment_id guarantees a single row per enlistment.
func (r *PaymentRepository) FindOrCreateLocked(ctx context.Context, exec sqlx.ExtContext, enlistmentID string) (*models.Payment, error) {
	target := r.exec(exec)
	now := time.Now().UTC()
	const insert = `INSERT INTO payments (id, enlistment_id, enlistment_amount, tuition_amount, enlistment_paid_amount,
        tuition_paid_amount, enlistment_paid, amount, submitted_amount, status, reference, created_at, updated_at)
        VALUES ($1, $2, 0, 0, 0, 0, FALSE, 0, 0, $3, '', $4, $4)
        ON CONFLICT (enlistment_id) DO NOTHING`
	if _, err := target.ExecContext(ctx, insert, uuid.NewString(), enlistmentID, models.PaymentPending, now); err != nil {
		return nil, fmt.Errorf("init payment: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM payments WHERE enlistment_id = $1 FOR UPDATE`, paymentColumns)
	var payment models.Payment
	if err := sqlx.GetContext(ctx, target, &payment, query, enlistmentID); err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return &payment, nil
}

// Save writes the mutable payment fields back to the row.
func (r *PaymentRepository) Save(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET
        enlistment_amount = :enlistment_amount,
        tuition_amount = :tuition_amount,
        enlistment_paid_amount = :enlistment_paid_amount,
        tuition_paid_amount = :tuition_paid_amount,
        enlistment_paid = :enlistment_paid,
        amount = :amount,
        submitted_amount = :submitted_amount,
        status = :status,
        reference = :reference,
        updated_at = :updated_at
        WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, payment); err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

// FinanceAccountRepository handles the per-student running balance.
type FinanceAccountRepository struct {
	db *sqlx.DB
}

// NewFinanceAccountRepository constructs the repository.
func NewFinanceAccountRepository(db *sqlx.DB) *FinanceAccountRepository {
	return &FinanceAccountRepository{db: db}
}

func (r *FinanceAccountRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByStudent returns the finance account for a student.
func (r *FinanceAccountRepository) FindByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.StudentFinanceAccount, error) {
	const query = `SELECT id, student_id, balance FROM student_finance_accounts WHERE student_id = $1`
	var account models.StudentFinanceAccount
	if err := sqlx.GetContext(ctx, r.exec(exec), &account, query, studentID); err != nil {
		return nil, err
	}
	return &account, nil
}

// AdjustBalance applies a signed delta to the student's balance, creating
// the account at zero first when missing. The unique constraint on
// student_id keeps this a single row per student.
func (r *FinanceAccountRepository) AdjustBalance(ctx context.Context, exec sqlx.ExtContext, studentID string, delta decimal.Decimal) error {
	target := r.exec(exec)
	const insert = `INSERT INTO student_finance_accounts (id, student_id, balance)
        VALUES ($1, $2, 0)
        ON CONFLICT (student_id) DO NOTHING`
	if _, err := target.ExecContext(ctx, insert, uuid.NewString(), studentID); err != nil {
		return fmt.Errorf("init finance account: %w", err)
	}
	const update = `UPDATE student_finance_accounts SET balance = balance + $2 WHERE student_id = $1`
	if _, err := target.ExecContext(ctx, update, studentID, delta); err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return nil
}
