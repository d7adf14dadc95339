package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/authgate/authgate/internal/api/response"
	"github.com/authgate/authgate/internal/apikey"
)

// Gate failure messages.
const (
	MsgKeyRequired = "Authorized api key is required for this request"
	MsgKeyInvalid  = "Api key is invalid"
)

const apiKeyCtxKey contextKey = "apiKey"

type gateFunc func(ctx context.Context, authorization string) (*apikey.APIKey, error)

// RequireKey is middleware that admits requests carrying any active API key
// in the Authorization header. Other requests get 401.
func RequireKey(gate *apikey.Gate) func(http.Handler) http.Handler {
	return guard(gate.RequireKey)
}

// RequireAdminKey is middleware that admits only requests carrying the
// active administrative API key.
func RequireAdminKey(gate *apikey.Gate) func(http.Handler) http.Handler {
	return guard(gate.RequireAdminKey)
}

func guard(check gateFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, err := check(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				switch {
				case errors.Is(err, apikey.ErrMissingCredential),
					errors.Is(err, apikey.ErrInvalidCredentialFormat):
					response.Msg(w, http.StatusUnauthorized, MsgKeyRequired)
				case errors.Is(err, apikey.ErrInvalidCredential):
					response.Msg(w, http.StatusUnauthorized, MsgKeyInvalid)
				default:
					slog.Error("api key check failed", "error", err, "requestId", GetRequestID(r.Context()))
					response.InternalError(w)
				}
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyCtxKey, k)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKey retrieves the authorized API key from the request context.
func GetAPIKey(ctx context.Context) *apikey.APIKey {
	if k, ok := ctx.Value(apiKeyCtxKey).(*apikey.APIKey); ok {
		return k
	}
	return nil
}
