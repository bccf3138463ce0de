package core

import (
	"context"
	"time"
)

// Role is a coarse user role consulted by the authorization layer.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// User is an actor that can be attributed on ledger entries and workflow stamps.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}

// UserService provides user lookup operations.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// CreateUser inserts a user, or updates the existing user with the same username.
	// passwordHash must already be hashed.
	CreateUser(ctx context.Context, username, email, passwordHash string, role Role) (*User, error)
}
