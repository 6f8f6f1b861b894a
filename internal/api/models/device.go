package models

// Device represents a registered push notification device.
// The raw token is never returned; only a truncated form for display.
type Device struct {
	ID         string         `json:"id"`
	Platform   DevicePlatform `json:"platform"`
	TokenLast4 *string        `json:"tokenLast4,omitempty"`
	Active     bool           `json:"active"`
	CreatedAt  Timestamp      `json:"createdAt"`
	UpdatedAt  Timestamp      `json:"updatedAt"`
}

// DeviceRegisterRequest is the request body for registering a device token.
type DeviceRegisterRequest struct {
	Token    string         `json:"token"`
	Platform DevicePlatform `json:"platform"`
}

// Validate validates the device registration request.
func (r *DeviceRegisterRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Token == "" {
		errs = append(errs, FieldError{Field: "token", Message: "is required", Code: "REQUIRED"})
	}

	switch r.Platform {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
	case "":
		errs = append(errs, FieldError{Field: "platform", Message: "is required", Code: "REQUIRED"})
	default:
		errs = append(errs, FieldError{Field: "platform", Message: "must be one of android, ios, web", Code: "INVALID"})
	}

	return errs
}

// PagedDevices represents a paginated list of devices.
type PagedDevices struct {
	Items []Device          `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
