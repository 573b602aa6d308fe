package models

import "github.com/shopspring/decimal"

// StudentFinanceAccount carries a student's running balance across terms.
// Positive means the student owes money; negative is credit carried over
// from overpayment.
type StudentFinanceAccount struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
}

// PreviousTermSubject records a subject a student took in a prior term.
// A row with Passed=false blocks finance clearance.
type PreviousTermSubject struct {
	ID         string `db:"id" json:"id"`
	StudentID  string `db:"student_id" json:"student_id"`
	SchoolYear string `db:"school_year" json:"school_year"`
	Semester   string `db:"semester" json:"semester"`
	SubjectID  string `db:"subject_id" json:"subject_id"`
	Grade      string `db:"grade" json:"grade"`
	Passed     bool   `db:"passed" json:"passed"`
}

// HoldCode identifies why finance clearance was withheld.
type HoldCode string

const (
	HoldNone     HoldCode = "NONE"
	HoldBalance  HoldCode = "BALANCE"
	HoldAcademic HoldCode = "ACADEMIC"
)

// Eligibility is the outcome of the finance clearance check.
type Eligibility struct {
	OK     bool     `json:"ok"`
	Code   HoldCode `json:"code"`
	Reason string   `json:"reason"`
}
