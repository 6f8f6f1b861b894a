// Package invitation implements single-use, email-bound invitation codes
// that gate worker account provisioning.
package invitation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvitationNotFound is returned when an invitation does not exist.
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrCodeInvalid is returned when no invitation matches a code string.
	ErrCodeInvalid = errors.New("invalid invitation code")

	// ErrCodeUsed is returned when the code has already been redeemed.
	ErrCodeUsed = errors.New("invitation code already used")

	// ErrCodeCancelled is returned when the code has been cancelled.
	ErrCodeCancelled = errors.New("invitation code cancelled")

	// ErrCodeExpired is returned when the code is past its expiry.
	ErrCodeExpired = errors.New("invitation code expired")

	// ErrCodeTaken is returned by Create when the generated code value
	// collides with an existing one.
	ErrCodeTaken = errors.New("invitation code already exists")

	// ErrActiveInvitationExists is returned when a valid invitation is
	// already outstanding for the email.
	ErrActiveInvitationExists = errors.New("an active invitation already exists for this email")

	// ErrNotAllowed is returned when the actor may not manage invitations.
	ErrNotAllowed = errors.New("not allowed to manage invitations")

	// ErrSignupDisabled is returned when invitation signup is switched off.
	ErrSignupDisabled = errors.New("invitation signup is disabled")
)

// EmailMismatchError is returned when a redemption email does not match the
// email the code was issued for. The bound address is masked before it is
// placed in the message.
type EmailMismatchError struct {
	MaskedEmail string
}

func (e *EmailMismatchError) Error() string {
	return fmt.Sprintf("this invitation code was created for %s", e.MaskedEmail)
}

// MaskEmail hides an email address, revealing only the first three
// characters and the domain.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return "***"
	}
	prefix := email
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return prefix + "***" + email[at:]
}

// InvitationTTL is how long a code stays redeemable after creation.
const InvitationTTL = 24 * time.Hour

// Invitation is a single-use signup code bound to an email address.
type Invitation struct {
	ID        string
	Code      string
	Email     string
	CreatedBy string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	Cancelled bool
}

// IsValid reports whether the invitation can still be redeemed at the
// given instant.
func (i *Invitation) IsValid(now time.Time) bool {
	return !i.Used && !i.Cancelled && i.ExpiresAt.After(now)
}
