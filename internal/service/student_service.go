package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-attendance-api/internal/authz"
	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfile, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.StudentProfile, error)
	CreateWithAccount(ctx context.Context, account *models.Account, student *models.StudentProfile) error
}

type accountUniquenessReader interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

// CreateStudentRequest carries the account credentials and profile fields
// created together in one transaction.
type CreateStudentRequest struct {
	Username   string  `json:"username" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=6"`
	StudentNo  string  `json:"student_no" validate:"required"`
	FirstName  string  `json:"first_name" validate:"required"`
	LastName   string  `json:"last_name" validate:"required"`
	Phone      *string `json:"phone"`
	Department string  `json:"department" validate:"required"`
	Year       int     `json:"year" validate:"required,min=1,max=6"`
	Semester   int     `json:"semester" validate:"required,min=1,max=12"`
}

// StudentService orchestrates student profile workflows.
type StudentService struct {
	repo      studentRepository
	accounts  accountUniquenessReader
	gate      authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, accounts accountUniquenessReader, gate authorizer, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, accounts: accounts, gate: gate, validator: validate, logger: logger}
}

// Create registers a student account and its profile atomically. Admin only.
func (s *StudentService) Create(ctx context.Context, actor models.Actor, req CreateStudentRequest) (*models.StudentProfile, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionCreateAccount, authz.Target{}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create student payload")
	}

	if _, err := s.accounts.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}
	if _, err := s.accounts.FindByEmail(ctx, strings.ToLower(req.Email)); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	account := &models.Account{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(passwordHash),
		Role:         models.RoleStudent,
	}
	student := &models.StudentProfile{
		StudentNo:  req.StudentNo,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      strings.ToLower(req.Email),
		Phone:      req.Phone,
		Department: req.Department,
		Year:       req.Year,
		Semester:   req.Semester,
	}

	if err := s.repo.CreateWithAccount(ctx, account, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("actor_id", actor.ID))
	return student, nil
}

// List returns student profiles with pagination metadata. Admin only.
func (s *StudentService) List(ctx context.Context, actor models.Actor, filter models.StudentFilter) ([]models.StudentProfile, *models.Pagination, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadAccount, authz.Target{}); err != nil {
		return nil, nil, err
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, pagination, nil
}

// Get returns one student profile. Admins may read any profile; students
// only their own.
func (s *StudentService) Get(ctx context.Context, actor models.Actor, id string) (*models.StudentProfile, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadStudent, authz.Target{StudentID: id}); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
