package models

import "time"

// EnlistmentStatus represents the lifecycle of an enlistment.
type EnlistmentStatus string

// Workflow states. ENROLLED and REJECTED are terminal; RETURNED and the
// two HOLD states are recoverable.
const (
	EnlistmentSubmitted           EnlistmentStatus = "SUBMITTED"
	EnlistmentReturned            EnlistmentStatus = "RETURNED"
	EnlistmentFinanceReview       EnlistmentStatus = "FINANCE_REVIEW"
	EnlistmentFinanceHoldBalance  EnlistmentStatus = "FINANCE_HOLD_BALANCE"
	EnlistmentFinanceHoldAcademic EnlistmentStatus = "FINANCE_HOLD_ACADEMIC"
	EnlistmentFinanceApproved     EnlistmentStatus = "FINANCE_APPROVED"
	EnlistmentApprovedForPayment  EnlistmentStatus = "APPROVED_FOR_PAYMENT"
	EnlistmentEnrolled            EnlistmentStatus = "ENROLLED"
	EnlistmentRejected            EnlistmentStatus = "REJECTED"
)

// Enlistment is one student's per-term application moving through the
// adviser/finance approval workflow.
type Enlistment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CategoryID *string          `db:"category_id" json:"category_id,omitempty"`
	ProgramID  *string          `db:"program_id" json:"program_id,omitempty"`
	SchoolYear string           `db:"school_year" json:"school_year"`
	Semester   string           `db:"semester" json:"semester"`
	Status     EnlistmentStatus `db:"status" json:"status"`
	Notes      string           `db:"notes" json:"notes"`
	HoldReason string           `db:"hold_reason" json:"hold_reason"`

	AdviserPreapprovedBy   *string `db:"adviser_preapproved_by" json:"adviser_preapproved_by,omitempty"`
	FinanceCheckedBy       *string `db:"finance_checked_by" json:"finance_checked_by,omitempty"`
	AdviserFinalApprovedBy *string `db:"adviser_final_approved_by" json:"adviser_final_approved_by,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EnlistmentDetail enriches Enlistment with student and catalog context.
type EnlistmentDetail struct {
	Enlistment
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	CategoryName *string `db:"category_name" json:"category_name,omitempty"`
	ProgramName  *string `db:"program_name" json:"program_name,omitempty"`
}

// EnlistmentSnapshot is the full picture returned by detail queries.
type EnlistmentSnapshot struct {
	EnlistmentDetail
	Subjects []Subject `json:"subjects"`
	Payment  *Payment  `json:"payment,omitempty"`
}

// EnlistmentSubject joins one subject to an enlistment's next-term list.
type EnlistmentSubject struct {
	ID           string    `db:"id" json:"id"`
	EnlistmentID string    `db:"enlistment_id" json:"enlistment_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EnlistmentFilter provides filters for listing enlistments.
type EnlistmentFilter struct {
	StudentID  string
	SchoolYear string
	Semester   string
	Statuses   []EnlistmentStatus
	Page       int
	PageSize   int
}
