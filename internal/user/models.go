// Package user provides the user directory: site managers and field workers.
package user

import (
	"errors"
	"strings"
	"time"
)

// Repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// Role represents a user role.
type Role string

const (
	RoleSiteManager Role = "site_manager"
	RoleWorker      Role = "worker"
)

// User represents a registered user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsManager reports whether the user holds the site manager role.
func (u *User) IsManager() bool {
	return u.Role == RoleSiteManager
}

// FullName returns the user's display name, falling back to the email address.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// ListOptions contains options for listing users.
type ListOptions struct {
	Role  Role
	Limit int
}

// ListResult contains the result of listing users.
type ListResult struct {
	Items      []*User
	NextCursor string
}
