package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/api/handler"
)

func (e *env) seedUser(t *testing.T, username, email, password string) {
	t.Helper()
	_, err := e.svc.RegisterUser(context.Background(), username, email, password)
	require.NoError(t, err)
}

func TestCheckPassword_Success(t *testing.T) {
	e := newEnv(t)
	e.seedUser(t, "alice", "alice@example.com", "s3cret")
	h := handler.NewAuthHandler(e.svc)

	w := serve(h.CheckPassword, jsonRequest(t, http.MethodPost, "/checkpassword", map[string]string{
		"username": "alice",
		"password": "s3cret",
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["is_pw_correct"])
	assert.Equal(t, "Username and password correct", body["message"])
	tok, ok := body["token"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, tok)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, handler.TokenCookie, cookies[0].Name)
	assert.Equal(t, tok, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestCheckPassword_InvalidCredentials(t *testing.T) {
	e := newEnv(t)
	e.seedUser(t, "alice", "alice@example.com", "s3cret")
	h := handler.NewAuthHandler(e.svc)

	for name, creds := range map[string]map[string]string{
		"unknown user":   {"username": "mallory", "password": "s3cret"},
		"wrong password": {"username": "alice", "password": "guess"},
	} {
		t.Run(name, func(t *testing.T) {
			w := serve(h.CheckPassword, jsonRequest(t, http.MethodPost, "/checkpassword", creds))

			assert.Equal(t, handler.StatusInvalidCredentials, w.Code)
			assert.Equal(t, map[string]any{"message": "Username or password is invalid"}, decodeBody(t, w))
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func TestCheckPassword_BadRequests(t *testing.T) {
	h := handler.NewAuthHandler(newEnv(t).svc)

	req := httptest.NewRequest(http.MethodPost, "/checkpassword", strings.NewReader("{not json"))
	w := serve(h.CheckPassword, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Request body must be valid JSON", decodeBody(t, w)["message"])

	w = serve(h.CheckPassword, jsonRequest(t, http.MethodPost, "/checkpassword", map[string]string{"username": "alice"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password is required", decodeBody(t, w)["message"])
}

func TestCheckPassword_StoreError(t *testing.T) {
	e := newEnv(t)
	e.users.GetErr = errors.New("pq: connection refused")
	h := handler.NewAuthHandler(e.svc)

	w := serve(h.CheckPassword, jsonRequest(t, http.MethodPost, "/checkpassword", map[string]string{
		"username": "alice",
		"password": "s3cret",
	}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"message": "Internal server error"}, decodeBody(t, w))
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name        string
		body        map[string]string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "success",
			body:        map[string]string{"username": "alice", "current_password": "old", "new_password": "new", "confirm_password": "new"},
			wantStatus:  http.StatusCreated,
			wantMessage: "Successfully changed password for user 'alice'",
		},
		{
			name:        "unknown user",
			body:        map[string]string{"username": "bob", "current_password": "old", "new_password": "new", "confirm_password": "new"},
			wantStatus:  handler.StatusChangeFailed,
			wantMessage: "Failed to change password",
		},
		{
			name:        "wrong current password",
			body:        map[string]string{"username": "alice", "current_password": "bad", "new_password": "new", "confirm_password": "new"},
			wantStatus:  handler.StatusChangeFailed,
			wantMessage: "Failed to change password",
		},
		{
			name:        "confirm mismatch",
			body:        map[string]string{"username": "alice", "current_password": "old", "new_password": "new", "confirm_password": "neu"},
			wantStatus:  handler.StatusChangeFailed,
			wantMessage: "Confirm password does not match the new password",
		},
		{
			name:        "missing confirm",
			body:        map[string]string{"username": "alice", "current_password": "old", "new_password": "new"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "confirm_password is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.seedUser(t, "alice", "alice@example.com", "old")
			h := handler.NewAuthHandler(e.svc)

			w := serve(h.ChangePassword, jsonRequest(t, http.MethodPost, "/changepassword", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, decodeBody(t, w)["message"])
		})
	}
}

func TestRegisterUser(t *testing.T) {
	tests := []struct {
		name        string
		body        map[string]string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "success",
			body:        map[string]string{"username": "bob", "email": "bob@example.com", "password": "pw"},
			wantStatus:  http.StatusCreated,
			wantMessage: "Successfully created user 'bob'",
		},
		{
			name:        "username taken",
			body:        map[string]string{"username": "alice", "email": "new@example.com", "password": "pw"},
			wantStatus:  handler.StatusRegistrationFailed,
			wantMessage: "Username is already used",
		},
		{
			name:        "email taken",
			body:        map[string]string{"username": "bob", "email": "alice@example.com", "password": "pw"},
			wantStatus:  handler.StatusRegistrationFailed,
			wantMessage: "Email is already registered",
		},
		{
			name:        "username too long",
			body:        map[string]string{"username": strings.Repeat("u", 31), "email": "long@example.com", "password": "pw"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "username must be at most 30 characters",
		},
		{
			name:        "email missing",
			body:        map[string]string{"username": "bob", "password": "pw"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "email is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.seedUser(t, "alice", "alice@example.com", "pw")
			h := handler.NewAuthHandler(e.svc)

			w := serve(h.RegisterUser, jsonRequest(t, http.MethodPost, "/registeruser", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, decodeBody(t, w)["message"])
		})
	}
}

func TestValidateToken(t *testing.T) {
	e := newEnv(t)
	e.seedUser(t, "alice", "alice@example.com", "s3cret")
	h := handler.NewAuthHandler(e.svc)
	tok, err := e.svc.CheckPassword(context.Background(), "alice", "s3cret", testUA)
	require.NoError(t, err)

	tests := []struct {
		name      string
		cookie    string
		userAgent string
		want      bool
	}{
		{name: "valid", cookie: tok, userAgent: testUA, want: true},
		{name: "other user agent", cookie: tok, userAgent: "curl/8.4.0", want: false},
		{name: "no cookie", userAgent: testUA, want: false},
		{name: "garbage cookie", cookie: "garbage", userAgent: testUA, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/validatetoken", nil)
			req.Header.Set("User-Agent", tt.userAgent)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: handler.TokenCookie, Value: tt.cookie})
			}

			w := serve(h.ValidateToken, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, map[string]any{"is_token_valid": tt.want}, decodeBody(t, w))
		})
	}
}
