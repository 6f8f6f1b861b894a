package invitation

import (
	"context"
	"time"

	"github.com/workcrew/workcrew/internal/user"
)

// Repository defines the interface for invitation persistence.
type Repository interface {
	// Get retrieves an invitation by ID.
	Get(ctx context.Context, id string) (*Invitation, error)

	// GetByCode retrieves an invitation by its code value.
	GetByCode(ctx context.Context, code string) (*Invitation, error)

	// HasActiveForEmail reports whether a valid invitation is outstanding
	// for the email at the given instant.
	HasActiveForEmail(ctx context.Context, email string, now time.Time) (bool, error)

	// List retrieves all invitations, newest first.
	List(ctx context.Context) ([]*Invitation, error)

	// Create stores a new invitation. Returns ErrCodeTaken when the code
	// value collides with an existing one.
	Create(ctx context.Context, inv *Invitation) error

	// Cancel marks the invitation cancelled.
	Cancel(ctx context.Context, id string) error

	// Delete removes the invitation. Used to roll back a creation whose
	// email delivery failed.
	Delete(ctx context.Context, id string) error

	// Redeem atomically creates the account and marks the invitation
	// used. Neither change survives if the other fails. Returns
	// ErrCodeInvalid when the code is no longer redeemable and
	// user.ErrEmailTaken when the account email is already registered.
	Redeem(ctx context.Context, code string, usedAt time.Time, account *user.User) error
}
