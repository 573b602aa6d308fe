package models

import "time"

// HistoryAction constants mirror the state-changing service operations.
const (
	HistorySubmitted       = "SUBMITTED"
	HistoryReturned        = "RETURNED"
	HistoryPreapproved     = "PREAPPROVED"
	HistoryFinanceReviewed = "FINANCE_REVIEWED"
	HistoryFinanceHeld     = "FINANCE_HELD"
	HistoryAmountSet       = "AMOUNT_SET"
	HistoryFinalApproved   = "FINAL_APPROVED"
	HistoryPaymentRecorded = "PAYMENT_RECORDED"
	HistoryEnrolled        = "ENROLLED"
)

// HistoryLog is an immutable audit record of one workflow action.
// Rows are never updated or deleted; enlistment_id is nullable so the
// trail survives any future record removal.
type HistoryLog struct {
	ID           string    `db:"id" json:"id"`
	ActorID      *string   `db:"actor_id" json:"actor_id,omitempty"`
	EnlistmentID *string   `db:"enlistment_id" json:"enlistment_id,omitempty"`
	Action       string    `db:"action" json:"action"`
	Message      string    `db:"message" json:"message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// HistoryEntry enriches HistoryLog with actor context for listings.
type HistoryEntry struct {
	HistoryLog
	ActorName   *string `db:"actor_name" json:"actor_name,omitempty"`
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
}
