package user

import (
	"context"
	"time"

	"github.com/workcrew/workcrew/internal/api/models"
)

// Service provides user directory operations.
type Service struct {
	repo Repository
}

// NewService creates a new user service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get retrieves a user by ID.
func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := s.toAPIUser(u)
	return &result, nil
}

// Update applies profile changes to the given user.
func (s *Service) Update(ctx context.Context, userID string, input *models.UserUpdateRequest) (*models.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		u.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		u.LastName = *input.LastName
	}
	if input.Phone != nil {
		u.Phone = *input.Phone
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	result := s.toAPIUser(u)
	return &result, nil
}

// ListWorkers retrieves users holding the worker role, most recent first.
func (s *Service) ListWorkers(ctx context.Context, limit int) (*models.PagedUsers, error) {
	result, err := s.repo.List(ctx, ListOptions{Role: RoleWorker, Limit: limit})
	if err != nil {
		return nil, err
	}

	items := make([]models.User, 0, len(result.Items))
	for _, u := range result.Items {
		items = append(items, s.toAPIUser(u))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedUsers{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// toAPIUser converts a domain User to an API User.
func (s *Service) toAPIUser(u *User) models.User {
	return models.User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      models.Role(u.Role),
		CreatedAt: models.Timestamp(u.CreatedAt),
		UpdatedAt: models.Timestamp(u.UpdatedAt),
	}
}
