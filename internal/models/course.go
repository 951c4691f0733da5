package models

// Course represents a catalog course bound to one faculty account. The
// instructor binding is immutable; there is no reassignment operation.
type Course struct {
	ID         string `db:"id" json:"id"`
	Code       string `db:"code" json:"code"`
	Name       string `db:"name" json:"name"`
	Credits    int    `db:"credits" json:"credits"`
	Department string `db:"department" json:"department"`
	FacultyID  string `db:"faculty_id" json:"faculty_id"`
}

// CourseDetail enriches Course with the instructor's username.
type CourseDetail struct {
	Course
	FacultyName string `db:"faculty_name" json:"faculty_name"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	FacultyID  string
	Department string
	Page       int
	PageSize   int
}
