package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/api/response"
	"github.com/workcrew/workcrew/internal/user"
)

// MeHandler handles user account endpoints.
type MeHandler struct {
	users *user.Service
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(users *user.Service) *MeHandler {
	return &MeHandler{users: users}
}

// GetMe handles GET /v1/me - get current user.
func (h *MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.users.Get(r.Context(), GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.Unauthorized(w, r, "user not found")
			return
		}
		response.InternalError(w, r, "failed to load user")
		return
	}

	response.JSON(w, r, http.StatusOK, me)
}

// UpdateMe handles PUT /v1/me - update current user profile fields.
func (h *MeHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var input models.UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	me, err := h.users.Update(r.Context(), GetUserID(r.Context()), &input)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.Unauthorized(w, r, "user not found")
			return
		}
		response.InternalError(w, r, "failed to update user")
		return
	}

	response.JSON(w, r, http.StatusOK, me)
}

// ListWorkers handles GET /v1/workers - list worker accounts.
// Restricted to site managers by the router.
func (h *MeHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 200)

	workers, err := h.users.ListWorkers(r.Context(), limit)
	if err != nil {
		response.InternalError(w, r, "failed to list workers")
		return
	}

	response.JSON(w, r, http.StatusOK, workers)
}

// parseLimit parses a limit query parameter with a default and a cap.
func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
