package api

import (
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/authgate/authgate/internal/api/handler"
	"github.com/authgate/authgate/internal/api/middleware"
	"github.com/authgate/authgate/internal/apikey"
	"github.com/authgate/authgate/internal/auth"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	AuthService *auth.Service
	Gate        *apikey.Gate
	Store       handler.Pinger
	Version     string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.Store, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	authHandler := handler.NewAuthHandler(deps.AuthService)
	keyHandler := handler.NewAPIKeyHandler(deps.AuthService)

	// Any active key
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireKey(deps.Gate))

		r.Get("/testapiauth", handler.KeyProbe)
		r.Post("/checkpassword", authHandler.CheckPassword)
		r.Post("/changepassword", authHandler.ChangePassword)
		r.Post("/registeruser", authHandler.RegisterUser)
		r.Get("/validatetoken", authHandler.ValidateToken)
	})

	// Admin key only
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminKey(deps.Gate))

		r.Post("/testapiauth", handler.AdminKeyProbe)
		r.Post("/generateapikey", keyHandler.Issue)
		r.Post("/deactivateapikey", keyHandler.Deactivate)
	})

	return r
}
