package handler

import (
	"encoding/json"
	"net/http"

	"github.com/authgate/authgate/internal/api/response"
	"github.com/authgate/authgate/internal/api/validation"
)

const maxBodyBytes = 1 << 20

type validationResponse struct {
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors"`
}

// decodeJSON reads the request body into v. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Msg(w, http.StatusBadRequest, "Request body must be valid JSON")
		return false
	}
	return true
}

// rejectInvalid writes a 400 listing fieldErrors and reports whether any
// were present.
func rejectInvalid(w http.ResponseWriter, fieldErrors []validation.FieldError) bool {
	if len(fieldErrors) == 0 {
		return false
	}
	response.JSON(w, http.StatusBadRequest, validationResponse{
		Message: fieldErrors[0].Message,
		Errors:  fieldErrors,
	})
	return true
}
