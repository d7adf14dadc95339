package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/api/middleware"
	"github.com/authgate/authgate/internal/apikey"
	"github.com/authgate/authgate/internal/testutil"
)

const (
	adminKey    = "adminAAAAAAAAAAAAAAAAA"
	deviceKey   = "deviceBBBBBBBBBBBBBBBB"
	inactiveKey = "inactiveCCCCCCCCCCCCCC"
)

func newTestGate() (*apikey.Gate, *testutil.APIKeyStore) {
	store := testutil.NewAPIKeyStore(
		&apikey.APIKey{Key: adminKey, DeviceName: apikey.AdminDeviceName, Active: true},
		&apikey.APIKey{Key: deviceKey, DeviceName: "kiosk", Active: true},
		&apikey.APIKey{Key: inactiveKey, DeviceName: "retired", Active: false},
	)
	return apikey.NewGate(store), store
}

// capturingHandler records the key injected into the request context.
func capturingHandler(captured **apikey.APIKey) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = middleware.GetAPIKey(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func serveWithAuth(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func parseMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["message"]
}

func TestRequireKey(t *testing.T) {
	gate, _ := newTestGate()

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantMessage   string
		wantDevice    string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyRequired},
		{name: "key without scheme", authorization: deviceKey, wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyRequired},
		{name: "lowercase scheme", authorization: "api_key " + deviceKey, wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyRequired},
		{name: "unknown key", authorization: "API_KEY nosuchkeyDDDDDDDDDDDDD", wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyInvalid},
		{name: "inactive key", authorization: "API_KEY " + inactiveKey, wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyInvalid},
		{name: "scheme with empty key", authorization: "API_KEY ", wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyInvalid},
		{name: "device key", authorization: "API_KEY " + deviceKey, wantStatus: http.StatusOK, wantDevice: "kiosk"},
		{name: "admin key", authorization: "API_KEY " + adminKey, wantStatus: http.StatusOK, wantDevice: apikey.AdminDeviceName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *apikey.APIKey
			w := serveWithAuth(middleware.RequireKey(gate)(capturingHandler(&captured)), tt.authorization)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, parseMessage(t, w))
				assert.Nil(t, captured, "handler must not run")
				return
			}
			require.NotNil(t, captured)
			assert.Equal(t, tt.wantDevice, captured.DeviceName)
		})
	}
}

func TestRequireAdminKey(t *testing.T) {
	gate, _ := newTestGate()

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantMessage   string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyRequired},
		{name: "key without scheme", authorization: adminKey, wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyRequired},
		{name: "active non-admin key", authorization: "API_KEY " + deviceKey, wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyInvalid},
		{name: "unknown key", authorization: "API_KEY nosuchkeyDDDDDDDDDDDDD", wantStatus: http.StatusUnauthorized, wantMessage: middleware.MsgKeyInvalid},
		{name: "admin key", authorization: "API_KEY " + adminKey, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *apikey.APIKey
			w := serveWithAuth(middleware.RequireAdminKey(gate)(capturingHandler(&captured)), tt.authorization)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, parseMessage(t, w))
				assert.Nil(t, captured)
				return
			}
			require.NotNil(t, captured)
			assert.True(t, captured.IsAdmin())
		})
	}
}

func TestRequireAdminKey_InactiveAdmin(t *testing.T) {
	store := testutil.NewAPIKeyStore(
		&apikey.APIKey{Key: adminKey, DeviceName: apikey.AdminDeviceName, Active: false},
	)
	var captured *apikey.APIKey
	h := middleware.RequireAdminKey(apikey.NewGate(store))(capturingHandler(&captured))

	w := serveWithAuth(h, "API_KEY "+adminKey)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.MsgKeyInvalid, parseMessage(t, w))
}

func TestRequireKey_StoreFailure(t *testing.T) {
	gate, store := newTestGate()
	store.GetErr = errors.New("connection refused")
	var captured *apikey.APIKey

	w := serveWithAuth(middleware.RequireKey(gate)(capturingHandler(&captured)), "API_KEY "+deviceKey)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", parseMessage(t, w))
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestGetAPIKey_EmptyContext(t *testing.T) {
	assert.Nil(t, middleware.GetAPIKey(context.Background()))
}
