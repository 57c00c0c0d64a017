package core

import (
	"context"
	"time"
)

// Roles understood by the web adapter.
const (
	RoleAdmin      = "admin"
	RoleSeller     = "seller"
	RoleAccountant = "accountant"
)

// User is an authenticated operator of the system.
type User struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserService provides user lookup and authentication.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// Authenticate checks the password and stamps last_login on success.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// CreateUser stores a new user with a bcrypt password hash.
	CreateUser(ctx context.Context, username, password, fullName, email, role string) (*User, error)
}
