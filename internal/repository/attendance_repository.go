package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-attendance-api/internal/models"
)

// AttendanceRepository handles persistence for the attendance register.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts or amends the record for (student, course, date) as one
// atomic statement. On conflict only status and marked_by change; the
// created_at of the original mark is retained.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, student_id, course_id, date, status, marked_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, course_id, date)
DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by
RETURNING id, student_id, course_id, date, status, marked_by, created_at`
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.StudentID, record.CourseID, record.Date, record.Status, record.MarkedBy, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// sheetRow scans the active-enrollee universe with an optional mark.
type sheetRow struct {
	StudentID   string  `db:"student_id"`
	StudentNo   string  `db:"student_no"`
	StudentName string  `db:"student_name"`
	Status      *string `db:"status"`
}

// SheetForDate enumerates the course's active enrollees and overlays the
// marks for the date. Students without a mark come back with a nil status.
func (r *AttendanceRepository) SheetForDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceSheetEntry, error) {
	const query = `SELECT s.id AS student_id, s.student_no, s.first_name || ' ' || s.last_name AS student_name, a.status
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        LEFT JOIN attendance a ON a.student_id = e.student_id AND a.course_id = e.course_id AND a.date = $2
        WHERE e.course_id = $1 AND e.status = $3
        ORDER BY s.student_no ASC`
	var rows []sheetRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID, date, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("attendance sheet: %w", err)
	}
	entries := make([]models.AttendanceSheetEntry, 0, len(rows))
	for _, row := range rows {
		entry := models.AttendanceSheetEntry{
			StudentID:   row.StudentID,
			StudentNo:   row.StudentNo,
			StudentName: row.StudentName,
		}
		if row.Status != nil {
			status := models.AttendanceStatus(*row.Status)
			entry.Status = &status
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// HistoryForStudent returns the student's marks restricted to courses with
// an active enrollment, most recent date first.
func (r *AttendanceRepository) HistoryForStudent(ctx context.Context, studentID string) ([]models.AttendanceHistoryRow, error) {
	const query = `SELECT a.course_id, c.code AS course_code, c.name AS course_name, a.date, a.status
        FROM attendance a
        JOIN courses c ON c.id = a.course_id
        JOIN enrollments e ON e.student_id = a.student_id AND e.course_id = a.course_id AND e.status = $2
        WHERE a.student_id = $1
        ORDER BY a.date DESC`
	var rows []models.AttendanceHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return rows, nil
}

// Stats aggregates mark counts across the whole register.
func (r *AttendanceRepository) Stats(ctx context.Context) (*models.AttendanceStats, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'present') AS present,
        COUNT(*) FILTER (WHERE status = 'absent') AS absent,
        COUNT(*) FILTER (WHERE status = 'late') AS late
        FROM attendance`
	var stats models.AttendanceStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("attendance stats: %w", err)
	}
	return &stats, nil
}
