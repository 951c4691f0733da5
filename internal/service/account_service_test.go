package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-attendance-api/internal/models"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
)

type mockAccountRepo struct {
	byUsername map[string]models.Account
	byEmail    map[string]models.Account
	created    *models.Account
	listFilter models.AccountFilter
}

func (m *mockAccountRepo) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error) {
	m.listFilter = filter
	return nil, 0, nil
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return nil, sql.ErrNoRows
}

func (m *mockAccountRepo) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	if a, ok := m.byUsername[username]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if a, ok := m.byEmail[email]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAccountRepo) Create(ctx context.Context, account *models.Account) error {
	m.created = account
	return nil
}

func TestAccountServiceCreateFaculty(t *testing.T) {
	repo := &mockAccountRepo{}
	svc := NewAccountService(repo, allowGate{}, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	account, err := svc.CreateFaculty(context.Background(), admin, CreateFacultyRequest{
		Username: "turing",
		Email:    "Turing@Example.edu",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleFaculty, account.Role)
	require.Equal(t, "turing@example.edu", account.Email)
	require.NotEmpty(t, account.ID)
	require.NotEqual(t, "secret123", account.PasswordHash)
}

func TestAccountServiceCreateFacultyDuplicateEmail(t *testing.T) {
	repo := &mockAccountRepo{byEmail: map[string]models.Account{
		"turing@example.edu": {ID: "acc-1"},
	}}
	svc := NewAccountService(repo, allowGate{}, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	_, err := svc.CreateFaculty(context.Background(), admin, CreateFacultyRequest{
		Username: "turing",
		Email:    "turing@example.edu",
		Password: "secret123",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.Nil(t, repo.created)
}

func TestAccountServiceCreateFacultyDenied(t *testing.T) {
	repo := &mockAccountRepo{}
	svc := NewAccountService(repo, denyGate{}, nil, nil)
	faculty := models.Actor{ID: "fac-1", Role: models.RoleFaculty}

	_, err := svc.CreateFaculty(context.Background(), faculty, CreateFacultyRequest{
		Username: "turing",
		Email:    "turing@example.edu",
		Password: "secret123",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

// ListFaculty always pins the role filter regardless of what the caller
// passed in.
func TestAccountServiceListFacultyPinsRole(t *testing.T) {
	repo := &mockAccountRepo{}
	svc := NewAccountService(repo, allowGate{}, nil, nil)
	admin := models.Actor{ID: "acc-admin", Role: models.RoleAdmin}

	adminRole := models.RoleAdmin
	_, _, err := svc.ListFaculty(context.Background(), admin, models.AccountFilter{Role: &adminRole})
	require.NoError(t, err)
	require.NotNil(t, repo.listFilter.Role)
	require.Equal(t, models.RoleFaculty, *repo.listFilter.Role)
}
