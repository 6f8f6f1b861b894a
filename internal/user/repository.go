package user

import "context"

// Repository defines the interface for user persistence.
type Repository interface {
	// FindByID retrieves a user by ID.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail retrieves a user by email address.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// EmailExists reports whether any user is registered with the email.
	EmailExists(ctx context.Context, email string) (bool, error)

	// List retrieves users, optionally filtered by role.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Create creates a new user. Returns ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, user *User) error

	// Update updates an existing user.
	Update(ctx context.Context, user *User) error
}
