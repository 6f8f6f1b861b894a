package device

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/workcrew/workcrew/internal/api/models"
)

// Service provides device registry operations.
type Service struct {
	repo Repository
}

// NewService creates a new device service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List retrieves the active devices for a user.
func (s *Service) List(ctx context.Context, userID string, limit int) (*models.PagedDevices, error) {
	result, err := s.repo.ListActiveByUser(ctx, userID, ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}

	items := make([]models.Device, 0, len(result.Items))
	for _, d := range result.Items {
		items = append(items, s.toAPIDevice(d))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedDevices{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Register registers or reactivates a device token for a user.
// Registering a token that belongs to another account transfers it.
// Returns the device and whether it was newly created.
func (s *Service) Register(ctx context.Context, userID string, input *models.DeviceRegisterRequest) (*models.Device, bool, error) {
	now := time.Now()

	device := &Device{
		ID:        "dev_" + uuid.New().String()[:22],
		UserID:    userID,
		Platform:  Platform(input.Platform),
		Token:     input.Token,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Upsert(ctx, device)
	if err != nil {
		return nil, false, err
	}

	result := s.toAPIDevice(device)
	return &result, created, nil
}

// Deactivate marks a device inactive so it no longer receives notifications.
// The registration row is kept; registering the same token again reactivates it.
func (s *Service) Deactivate(ctx context.Context, userID, deviceID string) error {
	return s.repo.Deactivate(ctx, userID, deviceID)
}

// ActiveTokens resolves the active device tokens for a set of users.
// Used by the notification dispatcher for per-user fan-out.
func (s *Service) ActiveTokens(ctx context.Context, userIDs []string) ([]string, error) {
	return s.repo.ActiveTokensForUsers(ctx, userIDs)
}

// DeactivateToken marks the device holding the given token inactive.
// Called when the push gateway reports the token as no longer registered.
func (s *Service) DeactivateToken(ctx context.Context, token string) error {
	return s.repo.DeactivateByToken(ctx, token)
}

// toAPIDevice converts a domain Device to an API Device.
func (s *Service) toAPIDevice(d *Device) models.Device {
	tokenLast4 := d.TokenLast4()
	return models.Device{
		ID:         d.ID,
		Platform:   models.DevicePlatform(d.Platform),
		TokenLast4: &tokenLast4,
		Active:     d.Active,
		CreatedAt:  models.Timestamp(d.CreatedAt),
		UpdatedAt:  models.Timestamp(d.UpdatedAt),
	}
}
