package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-attendance-api/internal/models"
)

// DashboardRepository aggregates the headline counts shown on the admin
// dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a dashboard repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// StudentCount returns the number of student profiles.
func (r *DashboardRepository) StudentCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// CourseCount returns the number of courses.
func (r *DashboardRepository) CourseCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// FacultyCount returns the number of faculty accounts.
func (r *DashboardRepository) FacultyCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts WHERE role = $1`, models.RoleFaculty); err != nil {
		return 0, fmt.Errorf("count faculty: %w", err)
	}
	return count, nil
}

// EnrollmentCount returns the number of active enrollments.
func (r *DashboardRepository) EnrollmentCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE status = $1`, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}
