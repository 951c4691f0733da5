package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-attendance-api/internal/authz"
	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

// authorizer is the gate consulted before every role-sensitive operation.
type authorizer interface {
	Authorize(ctx context.Context, actor models.Actor, action authz.Action, target authz.Target) error
}

type accountRepository interface {
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
}

// CreateFacultyRequest represents payload for creating faculty accounts.
type CreateFacultyRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AccountService handles account management workflows.
type AccountService struct {
	repo      accountRepository
	gate      authorizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountService creates an instance of AccountService.
func NewAccountService(repo accountRepository, gate authorizer, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AccountService{repo: repo, gate: gate, validator: validate, logger: logger}
}

// CreateFaculty adds a new faculty account. Admin only.
func (s *AccountService) CreateFaculty(ctx context.Context, actor models.Actor, req CreateFacultyRequest) (*models.Account, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionCreateAccount, authz.Target{}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create faculty payload")
	}

	if err := s.checkUniqueness(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(passwordHash),
		Role:         models.RoleFaculty,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	s.logger.Info("faculty account created", zap.String("account_id", account.ID), zap.String("actor_id", actor.ID))
	return account, nil
}

// ListFaculty returns faculty accounts with pagination metadata. Admin only.
func (s *AccountService) ListFaculty(ctx context.Context, actor models.Actor, filter models.AccountFilter) ([]models.Account, *models.Pagination, error) {
	if err := s.gate.Authorize(ctx, actor, authz.ActionReadAccount, authz.Target{}); err != nil {
		return nil, nil, err
	}
	role := models.RoleFaculty
	filter.Role = &role

	accounts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accounts")
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
	return accounts, pagination, nil
}

func (s *AccountService) checkUniqueness(ctx context.Context, username, email string) error {
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "username already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}
	if _, err := s.repo.FindByEmail(ctx, strings.ToLower(email)); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	return nil
}
