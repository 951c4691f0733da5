package models

import "time"

// StudentProfile represents a learner registered in the institution. Each
// profile is owned by exactly one account with role STUDENT and is created
// atomically together with that account.
type StudentProfile struct {
	ID             string    `db:"id" json:"id"`
	AccountID      string    `db:"account_id" json:"account_id"`
	StudentNo      string    `db:"student_no" json:"student_no"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Email          string    `db:"email" json:"email"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Department     string    `db:"department" json:"department"`
	Year           int       `db:"year" json:"year"`
	Semester       int       `db:"semester" json:"semester"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
}

// FullName joins the student's first and last name.
func (s StudentProfile) FullName() string {
	return s.FirstName + " " + s.LastName
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
}
