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
	"github.com/authgate/authgate/internal/user"
)

// Domain failure statuses. They sit outside the standard HTTP range so
// clients can branch on the exact failure.
const (
	StatusInvalidCredentials = 601
	StatusRegistrationFailed = 602
	StatusDeviceNameTaken    = 603
	StatusChangeFailed       = 604
)

// TokenCookie is the cookie carrying the serialized session token.
const TokenCookie = "token"

type checkPasswordRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type checkPasswordResponse struct {
	IsPasswordCorrect bool   `json:"is_pw_correct"`
	Message           string `json:"message"`
	Token             string `json:"token"`
}

type changePasswordRequest struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type registerUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type validateTokenResponse struct {
	IsTokenValid bool `json:"is_token_valid"`
}

// AuthHandler handles the username/password and token endpoints.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CheckPassword handles POST /checkpassword.
func (h *AuthHandler) CheckPassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req checkPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, validation.ValidateCheckPassword(validation.CheckPasswordRequest{
		Username: req.Username,
		Password: req.Password,
	})) {
		return
	}

	tok, err := h.authService.CheckPassword(r.Context(), req.Username, req.Password, r.UserAgent())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Info("login rejected", "requestId", requestID, "reason", err)
			response.Msg(w, StatusInvalidCredentials, "Username or password is invalid")
			return
		}
		slog.Error("failed to check password", "error", err, "requestId", requestID)
		response.InternalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	response.JSON(w, http.StatusOK, checkPasswordResponse{
		IsPasswordCorrect: true,
		Message:           "Username and password correct",
		Token:             tok,
	})
}

// ChangePassword handles POST /changepassword.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, validation.ValidateChangePassword(validation.ChangePasswordRequest{
		Username:        req.Username,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})) {
		return
	}

	err := h.authService.ChangePassword(r.Context(), req.Username, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	switch {
	case err == nil:
		response.Msg(w, http.StatusCreated, fmt.Sprintf("Successfully changed password for user '%s'", req.Username))
	case errors.Is(err, auth.ErrConfirmMismatch):
		response.Msg(w, StatusChangeFailed, "Confirm password does not match the new password")
	case errors.Is(err, user.ErrUserNotFound), errors.Is(err, auth.ErrPasswordMismatch):
		response.Msg(w, StatusChangeFailed, "Failed to change password")
	default:
		slog.Error("failed to change password", "error", err, "requestId", requestID)
		response.InternalError(w)
	}
}

// RegisterUser handles POST /registeruser.
func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req registerUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if rejectInvalid(w, validation.ValidateRegisterUser(validation.RegisterUserRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})) {
		return
	}

	u, err := h.authService.RegisterUser(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		slog.Info("user registered", "username", u.Username, "requestId", requestID)
		response.Msg(w, http.StatusCreated, fmt.Sprintf("Successfully created user '%s'", u.Username))
	case errors.Is(err, auth.ErrUsernameTaken):
		response.Msg(w, StatusRegistrationFailed, "Username is already used")
	case errors.Is(err, auth.ErrEmailTaken):
		response.Msg(w, StatusRegistrationFailed, "Email is already registered")
	default:
		slog.Error("failed to register user", "error", err, "requestId", requestID)
		response.InternalError(w)
	}
}

// ValidateToken handles GET /validatetoken. It always answers 200; a missing
// or undecodable token is reported as invalid.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var raw string
	if c, err := r.Cookie(TokenCookie); err == nil {
		raw = c.Value
	}

	response.JSON(w, http.StatusOK, validateTokenResponse{
		IsTokenValid: h.authService.ValidateToken(raw, r.UserAgent()),
	})
}
