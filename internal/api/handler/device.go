package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/api/response"
	"github.com/workcrew/workcrew/internal/device"
)

// DeviceHandler handles device registry endpoints.
type DeviceHandler struct {
	devices *device.Service
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(devices *device.Service) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// ListDevices handles GET /v1/me/devices - list active devices.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 100)

	devices, err := h.devices.List(r.Context(), GetUserID(r.Context()), limit)
	if err != nil {
		response.InternalError(w, r, "failed to list devices")
		return
	}

	response.JSON(w, r, http.StatusOK, devices)
}

// RegisterDevice handles POST /v1/me/devices - register or refresh a device token.
// Registering a token that is already on file updates the existing
// registration and returns 200 instead of 201.
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var input models.DeviceRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	registered, created, err := h.devices.Register(r.Context(), GetUserID(r.Context()), &input)
	if err != nil {
		response.InternalError(w, r, "failed to register device")
		return
	}

	if created {
		location := fmt.Sprintf("/v1/me/devices/%s", registered.ID)
		response.Created(w, r, location, registered)
		return
	}
	response.JSON(w, r, http.StatusOK, registered)
}

// UnregisterDevice handles DELETE /v1/me/devices/{deviceId} - deactivate a device.
func (h *DeviceHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	err := h.devices.Deactivate(r.Context(), GetUserID(r.Context()), deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			response.NotFound(w, r, "device not found")
			return
		}
		response.InternalError(w, r, "failed to unregister device")
		return
	}

	response.NoContent(w, r)
}
