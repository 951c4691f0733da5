package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-attendance-api/internal/middleware"
	"github.com/noah-isme/college-attendance-api/internal/models"
	"github.com/noah-isme/college-attendance-api/internal/service"
)

type fakeAccountStore struct {
	accounts map[string]models.Account
}

func (f *fakeAccountStore) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if a, ok := f.accounts[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	a := f.accounts[id]
	a.PasswordHash = passwordHash
	f.accounts[id] = a
	return nil
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &fakeAccountStore{accounts: map[string]models.Account{
		"acc-1": {ID: "acc-1", Username: "ada", Email: "ada@example.edu", PasswordHash: string(hash), Role: models.RoleAdmin},
	}}

	authSvc := service.NewAuthService(store, nil, nil, service.AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "college-attendance-api",
	})
	authHandler := NewAuthHandler(authSvc)

	r := gin.New()
	r.POST("/auth/login", authHandler.Login)
	r.GET("/auth/me", middleware.JWT(authSvc), authHandler.Me)
	return r
}

func TestAuthHandlerLoginAndMe(t *testing.T) {
	r := newAuthRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"ada","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "ada", envelope.Data.Account.Username)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+envelope.Data.AccessToken)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var meEnvelope struct {
		Data models.AccountInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meEnvelope))
	assert.Equal(t, "acc-1", meEnvelope.Data.ID)
	assert.Equal(t, models.RoleAdmin, meEnvelope.Data.Role)
}

func TestAuthHandlerLoginBadCredentials(t *testing.T) {
	r := newAuthRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"ada","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerMeRejectsMissingToken(t *testing.T) {
	r := newAuthRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
