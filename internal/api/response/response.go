package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Message is the body of every response that carries only a message.
type Message struct {
	Message string `json:"message"`
}

// JSON writes body as JSON with the given status code. Status codes outside
// the standard range (the 6xx domain failure codes) are written verbatim.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Msg writes a {"message": ...} body with the given status code.
func Msg(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Message{Message: message})
}

// InternalError writes the generic 500 body. No error detail is exposed.
func InternalError(w http.ResponseWriter) {
	Msg(w, http.StatusInternalServerError, "Internal server error")
}
