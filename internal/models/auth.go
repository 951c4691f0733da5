package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an account.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and account info.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	Account     AccountInfo `json:"account"`
}

// ChangePasswordRequest payload for updating the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// AccountInfo describes the authenticated account in responses.
type AccountInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	AccountID string `json:"account_id"`
	Role      Role   `json:"role"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Actor converts claims into the explicit actor passed to core operations.
func (c *JWTClaims) Actor() Actor {
	return Actor{ID: c.AccountID, Role: c.Role}
}
