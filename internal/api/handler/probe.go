package handler

import (
	"net/http"

	"github.com/authgate/authgate/internal/api/response"
)

// KeyProbe handles GET /testapiauth. Reaching it means the key gate passed.
func KeyProbe(w http.ResponseWriter, _ *http.Request) {
	response.Msg(w, http.StatusOK, "API successfully authorized")
}

// AdminKeyProbe handles POST /testapiauth behind the admin gate.
func AdminKeyProbe(w http.ResponseWriter, _ *http.Request) {
	response.Msg(w, http.StatusOK, "Admin API successfully authorized")
}
