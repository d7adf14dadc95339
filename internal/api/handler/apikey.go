package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/authgate/authgate/internal/api/middleware"
	"github.com/authgate/authgate/internal/api/response"
	"github.com/authgate/authgate/internal/api/validation"
	"github.com/authgate/authgate/internal/auth"
)

type deviceRequest struct {
	DeviceName string `json:"device_name"`
}

type issueAPIKeyResponse struct {
	APIKey string `json:"api_key"`
}

// APIKeyHandler handles the admin-only API key endpoints.
type APIKeyHandler struct {
	authService *auth.Service
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(authService *auth.Service) *APIKeyHandler {
	return &APIKeyHandler{authService: authService}
}

// Issue handles POST /generateapikey.
func (h *APIKeyHandler) Issue(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req deviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, validation.ValidateDeviceName(req.DeviceName)) {
		return
	}

	key, err := h.authService.IssueAPIKey(r.Context(), req.DeviceName)
	if err != nil {
		if errors.Is(err, auth.ErrDeviceNameTaken) {
			response.Msg(w, StatusDeviceNameTaken, "Device name is already used")
			return
		}
		slog.Error("failed to issue api key", "error", err, "requestId", requestID)
		response.InternalError(w)
		return
	}

	slog.Info("api key issued", "deviceName", req.DeviceName, "requestId", requestID)
	response.JSON(w, http.StatusOK, issueAPIKeyResponse{APIKey: key})
}

// Deactivate handles POST /deactivateapikey.
func (h *APIKeyHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req deviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, validation.ValidateDeviceName(req.DeviceName)) {
		return
	}

	err := h.authService.DeactivateAPIKey(r.Context(), req.DeviceName)
	switch {
	case err == nil:
		slog.Info("api key deactivated", "deviceName", req.DeviceName, "requestId", requestID)
		response.Msg(w, http.StatusOK, fmt.Sprintf("Api key for device '%s' deactivated", req.DeviceName))
	case errors.Is(err, auth.ErrDeviceNotRegistered):
		response.Msg(w, http.StatusNotFound, "Device name is not registered")
	case errors.Is(err, auth.ErrAdminKeyProtected):
		response.Msg(w, http.StatusConflict, "Admin api key cannot be deactivated")
	default:
		slog.Error("failed to deactivate api key", "error", err, "requestId", requestID)
		response.InternalError(w)
	}
}
