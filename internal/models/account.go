package models

import "time"

// Role represents the available roles for the RBAC system.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleFaculty Role = "FACULTY"
	RoleStudent Role = "STUDENT"
)

// Valid returns true when the role is a supported value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	default:
		return false
	}
}

// Account represents an application account stored in the accounts table.
// The role is fixed at creation time; there is no role-change or delete path.
type Account struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Actor identifies the authenticated caller of a core operation. Every
// mutating operation takes an explicit Actor; there is no ambient current
// user.
type Actor struct {
	ID   string
	Role Role
}

// AccountFilter captures filtering criteria for listing accounts.
type AccountFilter struct {
	Role     *Role
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
