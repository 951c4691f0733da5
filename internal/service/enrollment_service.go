package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-attendance-api/internal/authz"
	"github.com/noah-isme/college-attendance-api/internal/models"
	"github.com/noah-isme/college-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ExistsActive(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollRequest describes enrollment creation payload.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// EnrollmentService orchestrates the enrollment ledger.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   courseReader
	gate      authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, gate authorizer, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, gate: gate, validator: validate, logger: logger}
}

// Enroll registers a student to a course with status ACTIVE. Admin only.
// At most one active enrollment may exist per (student, course) pair; a
// concurrent duplicate insert surfaces as the same conflict as a
// sequential one.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionCreateEnrollment, authz.Target{}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.repo.ExistsActive(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled")
	}

	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		CourseID:       req.CourseID,
		EnrollmentDate: time.Now().UTC(),
		Status:         models.EnrollmentStatusActive,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateActiveEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID),
		zap.String("actor_id", actor.ID))
	return enrollment, nil
}

// List returns enrollments with pagination metadata. Admin only.
func (s *EnrollmentService) List(ctx context.Context, actor models.Actor, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadEnrollment, authz.Target{}); err != nil {
		return nil, nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "forbidden")
	}

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// ListActiveForStudent returns the student's active enrollments. Admins may
// read any student's; students only their own.
func (s *EnrollmentService) ListActiveForStudent(ctx context.Context, actor models.Actor, studentID string) ([]models.EnrollmentDetail, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadEnrollment, authz.Target{StudentID: studentID}); err != nil {
		return nil, err
	}
	enrollments, err := s.repo.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student enrollments")
	}
	return enrollments, nil
}

// ListForCourse returns all enrollments for a course. Admins may read any
// course's; faculty only courses they instruct.
func (s *EnrollmentService) ListForCourse(ctx context.Context, actor models.Actor, courseID string) ([]models.EnrollmentDetail, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadEnrollment, authz.Target{CourseID: courseID}); err != nil {
		return nil, err
	}
	enrollments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course enrollments")
	}
	return enrollments, nil
}
