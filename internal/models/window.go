package models

import "time"

// EnrollmentWindow is the singleton gate on new submissions.
type EnrollmentWindow struct {
	ID        string    `db:"id" json:"id"`
	IsOpen    bool      `db:"is_open" json:"is_open"`
	Message   string    `db:"message" json:"message"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
