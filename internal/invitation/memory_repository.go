package invitation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/workcrew/workcrew/internal/user"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used in tests and local development.
type InMemoryRepository struct {
	mu          sync.RWMutex
	invitations map[string]*Invitation
	users       *user.InMemoryRepository
}

// NewInMemoryRepository creates an empty in-memory invitation repository.
// Redemptions create accounts in the given user repository.
func NewInMemoryRepository(users *user.InMemoryRepository) *InMemoryRepository {
	return &InMemoryRepository{
		invitations: make(map[string]*Invitation),
		users:       users,
	}
}

var _ Repository = (*InMemoryRepository)(nil)

func copyInvitation(inv *Invitation) *Invitation {
	out := *inv
	if inv.UsedAt != nil {
		usedAt := *inv.UsedAt
		out.UsedAt = &usedAt
	}
	return &out
}

// Get retrieves an invitation by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invitations[id]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	return copyInvitation(inv), nil
}

// GetByCode retrieves an invitation by its code value.
func (r *InMemoryRepository) GetByCode(_ context.Context, code string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inv := range r.invitations {
		if inv.Code == code {
			return copyInvitation(inv), nil
		}
	}
	return nil, ErrInvitationNotFound
}

// HasActiveForEmail reports whether a valid invitation is outstanding for the email.
func (r *InMemoryRepository) HasActiveForEmail(_ context.Context, email string, now time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inv := range r.invitations {
		if inv.Email == email && inv.IsValid(now) {
			return true, nil
		}
	}
	return false, nil
}

// List retrieves all invitations, newest first.
func (r *InMemoryRepository) List(_ context.Context) ([]*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invitations := make([]*Invitation, 0, len(r.invitations))
	for _, inv := range r.invitations {
		invitations = append(invitations, copyInvitation(inv))
	}

	sort.Slice(invitations, func(i, j int) bool {
		return invitations[i].CreatedAt.After(invitations[j].CreatedAt)
	})

	return invitations, nil
}

// Create stores a new invitation.
func (r *InMemoryRepository) Create(_ context.Context, inv *Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.invitations {
		if existing.Code == inv.Code {
			return ErrCodeTaken
		}
	}

	r.invitations[inv.ID] = copyInvitation(inv)
	return nil
}

// Cancel marks the invitation cancelled.
func (r *InMemoryRepository) Cancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invitations[id]
	if !ok {
		return ErrInvitationNotFound
	}
	inv.Cancelled = true
	return nil
}

// Delete removes the invitation.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invitations[id]; !ok {
		return ErrInvitationNotFound
	}
	delete(r.invitations, id)
	return nil
}

// Redeem creates the account, then marks the invitation used. The account
// creation runs first so a failure there leaves the code unconsumed.
func (r *InMemoryRepository) Redeem(ctx context.Context, code string, usedAt time.Time, account *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var target *Invitation
	for _, inv := range r.invitations {
		if inv.Code == code {
			target = inv
			break
		}
	}
	if target == nil || !target.IsValid(usedAt) {
		return ErrCodeInvalid
	}

	if err := r.users.Create(ctx, account); err != nil {
		return err
	}

	target.Used = true
	target.UsedAt = &usedAt
	return nil
}
