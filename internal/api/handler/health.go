package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/authgate/authgate/internal/api/middleware"
	"github.com/authgate/authgate/internal/api/response"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the credential store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	store   Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store Pinger, version string) *HealthHandler {
	return &HealthHandler{
		store:   store,
		version: version,
	}
}

type storeStatus struct {
	Connected bool `json:"connected"`
}

type healthData struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Store   storeStatus `json:"store"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	status := "healthy"
	connected := true
	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("store ping failed", "error", err, "requestId", middleware.GetRequestID(r.Context()))
		status = "degraded"
		connected = false
	}

	response.JSON(w, http.StatusOK, healthData{
		Status:  status,
		Version: h.version,
		Store:   storeStatus{Connected: connected},
	})
}
