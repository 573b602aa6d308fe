package models

// Subject represents an academic subject offered for enlistment.
type Subject struct {
	ID    string `db:"id" json:"id"`
	Code  string `db:"code" json:"code"`
	Title string `db:"title" json:"title"`
	Units int    `db:"units" json:"units"`
}

// Category groups enlistments (e.g. Regular, Irregular).
type Category struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// Program is a degree program.
type Program struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// SchoolYear labels an academic year, e.g. "2025-2026".
type SchoolYear struct {
	ID     string `db:"id" json:"id"`
	Label  string `db:"label" json:"label"`
	Active bool   `db:"active" json:"active"`
}

// Semester labels a term within a school year, e.g. "1st", "2nd", "Summer".
type Semester struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}
