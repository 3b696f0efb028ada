package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money is rendered as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true
}

type User struct {
	ID           int64           `json:"id" db:"id"`
	FullName     string          `json:"fullName" db:"full_name"`
	Email        string          `json:"email" db:"email"`
	Phone        string          `json:"phone" db:"phone"`
	PasswordHash string          `json:"-" db:"password_hash"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	TotalTrips   int             `json:"totalTrips" db:"total_trips"`
	TotalExpense decimal.Decimal `json:"totalExpense" db:"total_expense"`
	Role         UserRole        `json:"role" db:"role"`
	IsActive     bool            `json:"isActive" db:"is_active"`
	LastLogin    *time.Time      `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type UserFilter struct {
	Search   string
	Role     UserRole
	IsActive *bool
}

type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Phone    string `json:"phone" validate:"required,min=7,max=20"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token,omitempty"`
}

type UpdateProfileRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=2,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// AdminUpdateUserRequest holds the fields an admin may change on any account.
type AdminUpdateUserRequest struct {
	FullName *string   `json:"fullName" validate:"omitempty,min=2,max=100"`
	Role     *UserRole `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive *bool     `json:"isActive"`
}
