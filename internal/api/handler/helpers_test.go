package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/testutil"
	"github.com/authgate/authgate/internal/token"
)

const testUA = "Mozilla/5.0 (Macintosh) Safari/605.1.15"

type env struct {
	svc   *auth.Service
	users *testutil.UserStore
	keys  *testutil.APIKeyStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	codec, err := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	e := &env{
		users: testutil.NewUserStore(),
		keys:  testutil.NewAPIKeyStore(),
	}
	e.svc = auth.NewService(e.users, e.keys, codec, auth.NewHasher(1, 64), 30*time.Minute)
	return e
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testUA)
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
