package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/api/response"
	"github.com/workcrew/workcrew/internal/auth"
	"github.com/workcrew/workcrew/internal/invitation"
	"github.com/workcrew/workcrew/internal/user"
)

// AuthHandler handles authentication and signup endpoints.
type AuthHandler struct {
	authService *auth.Service
	invitations *invitation.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, invitations *invitation.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		invitations: invitations,
	}
}

// Login handles POST /v1/auth/login - email+password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", authFieldErrors(errs))
		return
	}

	tokenResp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(w, r, "invalid email or password")
			return
		}
		response.InternalError(w, r, "authentication failed")
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

// Signup handles POST /v1/auth/signup - invitation code redemption.
// A successful redemption creates the worker account and logs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	account, err := h.invitations.Redeem(r.Context(), &req)
	if err != nil {
		h.writeRedeemError(w, r, err)
		return
	}

	tokenResp, err := h.authService.GenerateTokens(r.Context(), account)
	if err != nil {
		response.InternalError(w, r, "signup succeeded but login failed, please log in")
		return
	}

	response.JSON(w, r, http.StatusCreated, tokenResp)
}

func (h *AuthHandler) writeRedeemError(w http.ResponseWriter, r *http.Request, err error) {
	var mismatch *invitation.EmailMismatchError

	switch {
	case errors.As(err, &mismatch):
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "invitationCode", Message: mismatch.Error(), Code: "MISMATCH"},
		})
	case errors.Is(err, invitation.ErrCodeInvalid):
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "invitationCode", Message: "invalid invitation code", Code: "INVALID"},
		})
	case errors.Is(err, invitation.ErrCodeUsed):
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "invitationCode", Message: "this invitation code has already been used", Code: "USED"},
		})
	case errors.Is(err, invitation.ErrCodeCancelled):
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "invitationCode", Message: "this invitation code has been cancelled", Code: "CANCELLED"},
		})
	case errors.Is(err, invitation.ErrCodeExpired):
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "invitationCode", Message: "this invitation code has expired", Code: "EXPIRED"},
		})
	case errors.Is(err, invitation.ErrSignupDisabled):
		response.Forbidden(w, r, "signup is currently disabled")
	case errors.Is(err, user.ErrEmailTaken):
		response.Conflict(w, r, "this email address already belongs to a registered user")
	default:
		response.InternalError(w, r, "signup failed")
	}
}

// RefreshToken handles POST /v1/auth/refresh - refresh access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", authFieldErrors(errs))
		return
	}

	tokenResp, err := h.authService.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			response.Unauthorized(w, r, "invalid refresh token")
		case errors.Is(err, auth.ErrRefreshTokenExpired):
			response.Unauthorized(w, r, "refresh token has expired")
		default:
			response.InternalError(w, r, "token refresh failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

// Logout handles POST /v1/auth/logout - revoke current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if req.RefreshToken == "" {
		response.BadRequest(w, r, "refreshToken is required", nil)
		return
	}

	if err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		response.InternalError(w, r, "logout failed")
		return
	}

	response.NoContent(w, r)
}

// LogoutAll handles POST /v1/auth/logout-all - revoke all sessions for the user.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return
	}

	if err := h.authService.RevokeAllTokens(r.Context(), userID); err != nil {
		response.InternalError(w, r, "logout failed")
		return
	}

	response.NoContent(w, r)
}

func authFieldErrors(errs []auth.FieldError) []models.FieldError {
	fieldErrors := make([]models.FieldError, len(errs))
	for i, e := range errs {
		fieldErrors[i] = models.FieldError{
			Field:   e.Field,
			Message: e.Message,
			Code:    e.Code,
		}
	}
	return fieldErrors
}
