package middleware

import (
	"log/slog"
	"net/http"

	"github.com/authgate/authgate/internal/api/response"
)

// Recovery is middleware that recovers from panics and returns a 500 error.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				slog.Error("panic recovered",
					"error", err,
					"requestId", GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
				)
				response.InternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
