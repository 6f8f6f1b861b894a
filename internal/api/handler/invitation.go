package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/api/response"
	"github.com/workcrew/workcrew/internal/invitation"
	"github.com/workcrew/workcrew/internal/user"
)

// InvitationHandler handles invitation management endpoints.
// All routes are restricted to site managers by the router; the service
// enforces the role again.
type InvitationHandler struct {
	invitations *invitation.Service
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitations *invitation.Service) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// CreateInvitation handles POST /v1/invitations - issue an invitation code.
func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var input models.InvitationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	created, err := h.invitations.Create(r.Context(), GetUserID(r.Context()), input.Email)
	if err != nil {
		h.writeInvitationError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusCreated, created)
}

// ListInvitations handles GET /v1/invitations - list all invitations.
func (h *InvitationHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	items, err := h.invitations.List(r.Context(), GetUserID(r.Context()))
	if err != nil {
		h.writeInvitationError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]interface{}{"items": items})
}

// CancelInvitation handles POST /v1/invitations/{invitationId}/cancel.
func (h *InvitationHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.invitations.Cancel(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "invitationId"))
	if err != nil {
		h.writeInvitationError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, cancelled)
}

func (h *InvitationHandler) writeInvitationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, invitation.ErrNotAllowed):
		response.Forbidden(w, r, "only site managers can manage invitations")
	case errors.Is(err, invitation.ErrInvitationNotFound):
		response.NotFound(w, r, "invitation not found")
	case errors.Is(err, invitation.ErrCodeUsed):
		response.Conflict(w, r, "this invitation code has already been used")
	case errors.Is(err, invitation.ErrActiveInvitationExists):
		response.Conflict(w, r, "an active invitation code already exists for this email")
	case errors.Is(err, user.ErrEmailTaken):
		response.Conflict(w, r, "this email address already belongs to a registered user")
	case errors.Is(err, user.ErrUserNotFound):
		response.Unauthorized(w, r, "user not found")
	default:
		response.InternalError(w, r, "invitation operation failed")
	}
}
