package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle of a payment record.
type PaymentStatus string

// Possible payment statuses. SUCCESS is set exactly when the tuition
// bucket becomes fully paid.
const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSubmitted PaymentStatus = "SUBMITTED"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
)

// PaymentKind selects which fee bucket a payment applies to.
type PaymentKind string

const (
	KindEnlistment PaymentKind = "ENLISTMENT"
	KindTuition    PaymentKind = "TUITION"
)

// Payment tracks the two fee buckets for one enlistment. The enlistment
// fee must be settled before tuition payments are accepted. Amount is a
// derived display value mirroring TuitionAmount; the due/paid bucket
// fields are the sole source of truth.
type Payment struct {
	ID           string `db:"id" json:"id"`
	EnlistmentID string `db:"enlistment_id" json:"enlistment_id"`

	EnlistmentAmount     decimal.Decimal `db:"enlistment_amount" json:"enlistment_amount"`
	TuitionAmount        decimal.Decimal `db:"tuition_amount" json:"tuition_amount"`
	EnlistmentPaidAmount decimal.Decimal `db:"enlistment_paid_amount" json:"enlistment_paid_amount"`
	TuitionPaidAmount    decimal.Decimal `db:"tuition_paid_amount" json:"tuition_paid_amount"`
	EnlistmentPaid       bool            `db:"enlistment_paid" json:"enlistment_paid"`

	Amount          decimal.Decimal `db:"amount" json:"amount"`
	SubmittedAmount decimal.Decimal `db:"submitted_amount" json:"submitted_amount"`
	Status          PaymentStatus   `db:"status" json:"status"`
	Reference       string          `db:"reference" json:"reference"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DueFor returns the due amount for the given bucket.
func (p *Payment) DueFor(kind PaymentKind) decimal.Decimal {
	if kind == KindEnlistment {
		return p.EnlistmentAmount
	}
	return p.TuitionAmount
}

// PaidFor returns the running paid amount for the given bucket.
func (p *Payment) PaidFor(kind PaymentKind) decimal.Decimal {
	if kind == KindEnlistment {
		return p.EnlistmentPaidAmount
	}
	return p.TuitionPaidAmount
}

// PaymentResult summarises a recorded payment for the caller.
type PaymentResult struct {
	Payment     *Payment         `json:"payment"`
	Kind        PaymentKind      `json:"kind"`
	FullyPaid   bool             `json:"fully_paid"`
	Overpayment decimal.Decimal  `json:"overpayment"`
	NewStatus   EnlistmentStatus `json:"enlistment_status"`
}
