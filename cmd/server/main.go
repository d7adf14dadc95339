package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authgate/authgate/internal/api"
	"github.com/authgate/authgate/internal/apikey"
	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/store"
	"github.com/authgate/authgate/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	st, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.StoreDriver, err)
	}
	defer st.Close()
	slog.Info("credential store ready", "driver", cfg.StoreDriver)

	codec, err := token.NewCodecFromHex(cfg.TokenSecretKey)
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}

	hasher := auth.NewHasher(cfg.PasswordHashIterations, cfg.PasswordHashMemoryKiB)
	authService := auth.NewService(st.Users, st.APIKeys, codec, hasher, cfg.TokenTTL())

	if cfg.BootstrapAdmin {
		if _, err := authService.BootstrapAdminKey(ctx); err != nil {
			return fmt.Errorf("bootstrapping admin api key: %w", err)
		}
	}

	router := api.NewRouter(api.RouterDeps{
		AuthService: authService,
		Gate:        apikey.NewGate(st.APIKeys),
		Store:       st,
		Version:     cfg.Version,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting authgate server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
