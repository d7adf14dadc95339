package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/api/middleware"
)

func captureRequestID(t *testing.T, header string) (captured string, w *httptest.ResponseRecorder) {
	t.Helper()
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("X-Request-ID", header)
	}
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return captured, w
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	capturedID, w := captureRequestID(t, "")

	require.NotEmpty(t, capturedID)
	_, err := uuid.Parse(capturedID)
	assert.NoError(t, err, "generated request ID should be a valid UUID")
	assert.Equal(t, capturedID, w.Header().Get("X-Request-ID"))
}

func TestRequestID_UsesExistingHeader(t *testing.T) {
	capturedID, w := captureRequestID(t, "my-existing-request-id")

	assert.Equal(t, "my-existing-request-id", capturedID)
	assert.Equal(t, "my-existing-request-id", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesUnusableHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "too long", header: strings.Repeat("a", 129)},
		{name: "contains space", header: "abc def"},
		{name: "non ascii", header: "réquest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capturedID, _ := captureRequestID(t, tt.header)

			assert.NotEqual(t, tt.header, capturedID)
			_, err := uuid.Parse(capturedID)
			assert.NoError(t, err)
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	ids := make(map[string]bool)

	for i := 0; i < 10; i++ {
		id, _ := captureRequestID(t, "")
		assert.False(t, ids[id], "request IDs should be unique")
		ids[id] = true
	}
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	id := middleware.GetRequestID(req.Context())

	assert.Equal(t, "", id)
}
