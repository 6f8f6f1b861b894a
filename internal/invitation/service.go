package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/auth"
	"github.com/workcrew/workcrew/internal/featureflags"
	"github.com/workcrew/workcrew/internal/mail"
	"github.com/workcrew/workcrew/internal/user"
)

// maxCodeAttempts bounds regeneration when a generated code collides with
// an existing row. Collisions are rare at 32^6 code space.
const maxCodeAttempts = 5

// ServiceConfig holds the dependencies for the invitation service.
type ServiceConfig struct {
	Repo   Repository
	Users  user.Repository
	Mailer mail.Mailer
	Flags  *featureflags.Service
	Logger zerolog.Logger
}

// Service provides invitation issuing, redemption and management.
type Service struct {
	repo   Repository
	users  user.Repository
	mailer mail.Mailer
	flags  *featureflags.Service
	logger zerolog.Logger
}

// NewService creates a new invitation service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repo,
		users:  cfg.Users,
		mailer: cfg.Mailer,
		flags:  cfg.Flags,
		logger: cfg.Logger.With().Str("component", "invitation_service").Logger(),
	}
}

// Create issues a new invitation code for an email and delivers it by
// email. When delivery fails the code is removed again so the operation is
// all-or-nothing.
func (s *Service) Create(ctx context.Context, actorID, email string) (*models.Invitation, error) {
	if err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now()

	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email registration: %w", err)
	}
	if taken {
		return nil, user.ErrEmailTaken
	}

	active, err := s.repo.HasActiveForEmail(ctx, email, now)
	if err != nil {
		return nil, fmt.Errorf("checking outstanding invitations: %w", err)
	}
	if active {
		return nil, ErrActiveInvitationExists
	}

	inv := &Invitation{
		ID:        "inv_" + uuid.New().String()[:22],
		Email:     email,
		CreatedBy: actorID,
		CreatedAt: now,
		ExpiresAt: now.Add(InvitationTTL),
	}

	for attempt := 0; ; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		inv.Code = code

		err = s.repo.Create(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrCodeTaken) || attempt+1 >= maxCodeAttempts {
			return nil, fmt.Errorf("storing invitation: %w", err)
		}
	}

	if err := s.mailer.Send(ctx, mail.InvitationMessage(email, inv.Code)); err != nil {
		s.logger.Error().
			Err(err).
			Str("invitation_id", inv.ID).
			Msg("Invitation email delivery failed, rolling back code")

		if delErr := s.repo.Delete(ctx, inv.ID); delErr != nil {
			s.logger.Error().
				Err(delErr).
				Str("invitation_id", inv.ID).
				Msg("Failed to roll back invitation after email failure")
		}
		return nil, fmt.Errorf("sending invitation email: %w", err)
	}

	s.logger.Info().
		Str("invitation_id", inv.ID).
		Str("created_by", actorID).
		Msg("Invitation created and email sent")

	return s.toAPIInvitation(ctx, inv), nil
}

// Redeem validates an invitation code and provisions a worker account.
// Account creation and consuming the code happen atomically.
func (s *Service) Redeem(ctx context.Context, input *models.SignupRequest) (*user.User, error) {
	if s.flags != nil && !s.flags.IsSignupEnabled(ctx) {
		return nil, ErrSignupDisabled
	}

	code := strings.ToUpper(strings.TrimSpace(input.InvitationCode))
	email := strings.ToLower(strings.TrimSpace(input.Email))
	now := time.Now()

	inv, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvitationNotFound) {
			return nil, ErrCodeInvalid
		}
		return nil, err
	}

	switch {
	case inv.Cancelled:
		return nil, ErrCodeCancelled
	case inv.Used:
		return nil, ErrCodeUsed
	case !inv.ExpiresAt.After(now):
		return nil, ErrCodeExpired
	}

	if inv.Email != email {
		return nil, &EmailMismatchError{MaskedEmail: MaskEmail(inv.Email)}
	}

	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	account := &user.User{
		ID:           "usr_" + uuid.New().String()[:22],
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         user.RoleWorker,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Redeem(ctx, code, now, account); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("invitation_id", inv.ID).
		Str("user_id", account.ID).
		Msg("Invitation redeemed, worker account created")

	return account, nil
}

// Cancel revokes an unused invitation. Cancelling an already cancelled
// invitation is a no-op.
func (s *Service) Cancel(ctx context.Context, actorID, invitationID string) (*models.Invitation, error) {
	if err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}

	inv, err := s.repo.Get(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	if inv.Used {
		return nil, ErrCodeUsed
	}

	if !inv.Cancelled {
		if err := s.repo.Cancel(ctx, invitationID); err != nil {
			return nil, err
		}
		inv.Cancelled = true
	}

	return s.toAPIInvitation(ctx, inv), nil
}

// List retrieves all invitations, newest first.
func (s *Service) List(ctx context.Context, actorID string) ([]models.Invitation, error) {
	if err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}

	invitations, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.Invitation, 0, len(invitations))
	for _, inv := range invitations {
		items = append(items, *s.toAPIInvitation(ctx, inv))
	}
	return items, nil
}

func (s *Service) requireManager(ctx context.Context, actorID string) error {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.IsManager() {
		return ErrNotAllowed
	}
	return nil
}

func (s *Service) toAPIInvitation(ctx context.Context, inv *Invitation) *models.Invitation {
	createdBy := inv.CreatedBy
	if creator, err := s.users.FindByID(ctx, inv.CreatedBy); err == nil {
		createdBy = creator.FullName()
	}

	out := &models.Invitation{
		ID:        inv.ID,
		Email:     inv.Email,
		CreatedBy: createdBy,
		CreatedAt: models.Timestamp(inv.CreatedAt),
		ExpiresAt: models.Timestamp(inv.ExpiresAt),
		Used:      inv.Used,
		Cancelled: inv.Cancelled,
		Expired:   !inv.ExpiresAt.After(time.Now()),
	}
	if inv.UsedAt != nil {
		usedAt := models.Timestamp(*inv.UsedAt)
		out.UsedAt = &usedAt
	}
	return out
}
