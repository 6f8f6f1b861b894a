package models

// Invitation represents an invitation code as returned to managers.
// The code itself is only delivered by email, never via the list endpoint.
type Invitation struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt Timestamp  `json:"createdAt"`
	ExpiresAt Timestamp  `json:"expiresAt"`
	Used      bool       `json:"used"`
	UsedAt    *Timestamp `json:"usedAt,omitempty"`
	Cancelled bool       `json:"cancelled"`
	Expired   bool       `json:"expired"`
}

// InvitationCreateRequest is the request body for issuing an invitation.
type InvitationCreateRequest struct {
	Email string `json:"email"`
}

// Validate validates the invitation creation request.
func (r *InvitationCreateRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "is required", Code: "REQUIRED"})
	}
	return errs
}

// SignupRequest is the request body for redeeming an invitation during signup.
type SignupRequest struct {
	InvitationCode string `json:"invitationCode"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Phone          string `json:"phone,omitempty"`
}

// Validate validates the signup request.
func (r *SignupRequest) Validate() []FieldError {
	var errs []FieldError

	if r.InvitationCode == "" {
		errs = append(errs, FieldError{Field: "invitationCode", Message: "is required", Code: "REQUIRED"})
	}
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "is required", Code: "REQUIRED"})
	}
	if len(r.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	if r.FirstName == "" {
		errs = append(errs, FieldError{Field: "firstName", Message: "is required", Code: "REQUIRED"})
	}

	return errs
}
