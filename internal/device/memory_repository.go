package device

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	devices map[string]*Device // keyed by device ID
	tokens  map[string]string  // token -> device ID mapping
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		devices: make(map[string]*Device),
		tokens:  make(map[string]string),
	}
}

// Get retrieves a device by user ID and device ID.
func (r *InMemoryRepository) Get(_ context.Context, userID, deviceID string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[deviceID]
	if !ok || device.UserID != userID {
		return nil, ErrDeviceNotFound
	}

	return copyDevice(device), nil
}

// GetByToken retrieves a device by token.
func (r *InMemoryRepository) GetByToken(_ context.Context, token string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deviceID, ok := r.tokens[token]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	device, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	return copyDevice(device), nil
}

// ListActiveByUser retrieves the active devices for a user, most recently
// created first. Re-registering an existing token refreshes updated_at but
// does not change its position.
func (r *InMemoryRepository) ListActiveByUser(_ context.Context, userID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*Device
	for _, device := range r.devices {
		if device.UserID == userID && device.Active {
			items = append(items, copyDevice(device))
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(items) > limit {
		items = items[:limit]
	}

	return &ListResult{
		Items:      items,
		NextCursor: "",
	}, nil
}

// ActiveTokensForUsers retrieves the active device tokens for a set of users.
func (r *InMemoryRepository) ActiveTokensForUsers(_ context.Context, userIDs []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	var devices []*Device
	for _, device := range r.devices {
		if device.Active && wanted[device.UserID] {
			devices = append(devices, device)
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].UpdatedAt.After(devices[j].UpdatedAt)
	})

	var tokens []string
	for _, device := range devices {
		tokens = append(tokens, device.Token)
	}
	return tokens, nil
}

// Upsert creates or updates a device based on the token.
// Returns true if a new device was created, false if updated.
func (r *InMemoryRepository) Upsert(_ context.Context, device *Device) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A token already on file keeps its row; owner and platform follow the
	// incoming registration and the row is reactivated.
	if existingID, ok := r.tokens[device.Token]; ok {
		existing := r.devices[existingID]
		existing.UserID = device.UserID
		existing.Platform = device.Platform
		existing.Active = true
		existing.UpdatedAt = device.UpdatedAt
		device.ID = existing.ID
		device.CreatedAt = existing.CreatedAt
		device.Active = true
		return false, nil
	}

	device.Active = true
	r.devices[device.ID] = copyDevice(device)
	r.tokens[device.Token] = device.ID
	return true, nil
}

// Deactivate marks a device inactive.
func (r *InMemoryRepository) Deactivate(_ context.Context, userID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.devices[deviceID]
	if !ok || device.UserID != userID {
		return ErrDeviceNotFound
	}

	device.Active = false
	device.UpdatedAt = time.Now()
	return nil
}

// DeactivateByToken marks the device holding the given token inactive.
func (r *InMemoryRepository) DeactivateByToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	deviceID, ok := r.tokens[token]
	if !ok {
		return ErrDeviceNotFound
	}

	device := r.devices[deviceID]
	device.Active = false
	device.UpdatedAt = time.Now()
	return nil
}

// DeactivateStale marks devices inactive whose last registration is older
// than the cutoff.
func (r *InMemoryRepository) DeactivateStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, device := range r.devices {
		if device.Active && device.UpdatedAt.Before(cutoff) {
			device.Active = false
			count++
		}
	}
	return count, nil
}

// copyDevice creates a copy of a device.
func copyDevice(d *Device) *Device {
	if d == nil {
		return nil
	}

	deviceCopy := *d
	return &deviceCopy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
