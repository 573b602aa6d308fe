package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/enrollsys-api/internal/models"
)

type balanceReader interface {
	FindByStudent(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.StudentFinanceAccount, error)
}

type failedSubjectChecker interface {
	HasFailed(ctx context.Context, studentID string) (bool, error)
}

// EligibilityChecker decides whether finance may clear a student. The
// outcome carries a hold code so callers never branch on reason text.
type EligibilityChecker struct {
	accounts balanceReader
	previous failedSubjectChecker
}

// NewEligibilityChecker wires the two reads the check depends on.
func NewEligibilityChecker(accounts balanceReader, previous failedSubjectChecker) *EligibilityChecker {
	return &EligibilityChecker{accounts: accounts, previous: previous}
}

// Check evaluates the clearance rules. The balance rule is evaluated
// first, so it wins when both rules fail. A missing finance account
// counts as a zero balance.
func (c *EligibilityChecker) Check(ctx context.Context, studentID string) (models.Eligibility, error) {
	balance := decimal.Zero
	account, err := c.accounts.FindByStudent(ctx, nil, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.Eligibility{}, err
		}
	} else {
		balance = account.Balance
	}

	if balance.IsPositive() {
		return models.Eligibility{
			OK:     false,
			Code:   models.HoldBalance,
			Reason: "Unpaid balance. Please settle your account first.",
		}, nil
	}

	failed, err := c.previous.HasFailed(ctx, studentID)
	if err != nil {
		return models.Eligibility{}, err
	}
	if failed {
		return models.Eligibility{
			OK:     false,
			Code:   models.HoldAcademic,
			Reason: "Academic issue: previous term contains failed subject(s). Please consult your adviser.",
		}, nil
	}

	return models.Eligibility{OK: true, Code: models.HoldNone}, nil
}
