package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// AttendanceRecord is a single mark keyed by (student, course, date).
// Exactly one row exists per key; a repeat mark overwrites Status and
// MarkedBy in place while CreatedAt keeps the first mark's timestamp.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceSheetEntry pairs a student on a course's sheet with the mark
// for one date. Status is nil when the student has not been marked yet;
// unmarked students are reported explicitly, never omitted.
type AttendanceSheetEntry struct {
	StudentID   string            `json:"student_id"`
	StudentNo   string            `json:"student_no"`
	StudentName string            `json:"student_name"`
	Status      *AttendanceStatus `json:"status"`
}

// AttendanceHistoryRow captures a student's attendance history entry.
type AttendanceHistoryRow struct {
	CourseID   string           `db:"course_id" json:"course_id"`
	CourseCode string           `db:"course_code" json:"course_code"`
	CourseName string           `db:"course_name" json:"course_name"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
}

// AttendanceStats aggregates marks across the register.
type AttendanceStats struct {
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Rate    float64 `json:"rate"`
}

// DashboardCounts backs the admin dashboard overview.
type DashboardCounts struct {
	Students    int `json:"students"`
	Courses     int `json:"courses"`
	Faculty     int `json:"faculty"`
	Enrollments int `json:"enrollments"`
}
