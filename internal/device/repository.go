package device

import (
	"context"
	"time"
)

// Repository defines the interface for device persistence.
type Repository interface {
	// Get retrieves a device by user ID and device ID.
	Get(ctx context.Context, userID, deviceID string) (*Device, error)

	// GetByToken retrieves a device by token, regardless of owner or state.
	GetByToken(ctx context.Context, token string) (*Device, error)

	// ListActiveByUser retrieves the active devices for a user,
	// most recently registered first.
	ListActiveByUser(ctx context.Context, userID string, opts ListOptions) (*ListResult, error)

	// ActiveTokensForUsers retrieves the active device tokens for a set
	// of users. Users without active devices contribute nothing.
	ActiveTokensForUsers(ctx context.Context, userIDs []string) ([]string, error)

	// Upsert creates or updates a device based on the token. Ownership and
	// platform follow the incoming device, and the row is always left active.
	// Returns true if a new device was created, false if updated.
	Upsert(ctx context.Context, device *Device) (created bool, err error)

	// Deactivate marks a device inactive. Deactivating an already inactive
	// device is a no-op.
	Deactivate(ctx context.Context, userID, deviceID string) error

	// DeactivateByToken marks the device holding the given token inactive.
	// Used when the push gateway reports the token as no longer registered.
	DeactivateByToken(ctx context.Context, token string) error

	// DeactivateStale marks devices inactive whose last registration is
	// older than the cutoff. Returns the number of devices deactivated.
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)
}
