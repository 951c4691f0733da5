package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-attendance-api/internal/authz"
	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
}

type facultyReader interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Code       string `json:"code" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Credits    int    `json:"credits" validate:"required,min=1,max=10"`
	Department string `json:"department" validate:"required"`
	FacultyID  string `json:"faculty_id" validate:"required"`
}

// CourseService orchestrates course catalog workflows.
type CourseService struct {
	repo      courseRepository
	accounts  facultyReader
	gate      authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, accounts facultyReader, gate authorizer, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, accounts: accounts, gate: gate, validator: validate, logger: logger}
}

// Create adds a course bound to a faculty account. Admin only. The
// instructor binding is immutable once created.
func (s *CourseService) Create(ctx context.Context, actor models.Actor, req CreateCourseRequest) (*models.Course, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionCreateCourse, authz.Target{}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create course payload")
	}

	faculty, err := s.accounts.FindByID(ctx, req.FacultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty account")
	}
	if faculty.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor must be a faculty account")
	}

	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code uniqueness")
	}

	course := &models.Course{
		Code:       req.Code,
		Name:       req.Name,
		Credits:    req.Credits,
		Department: req.Department,
		FacultyID:  req.FacultyID,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("actor_id", actor.ID))
	return course, nil
}

// List returns courses visible to the actor. Admins see the whole catalog;
// faculty are narrowed to their own courses.
func (s *CourseService) List(ctx context.Context, actor models.Actor, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadCourse, authz.Target{}); err != nil {
		return nil, nil, err
	}
	if actor.Role == models.RoleFaculty {
		filter.FacultyID = actor.ID
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
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
	return courses, pagination, nil
}

// Get returns one course. Faculty may only read courses they own.
func (s *CourseService) Get(ctx context.Context, actor models.Actor, id string) (*models.Course, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadCourse, authz.Target{CourseID: id}); err != nil {
		return nil, err
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}
