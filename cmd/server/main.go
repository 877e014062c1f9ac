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

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/storyvault/storyvault/pkg/storyvault"
	"github.com/storyvault/storyvault/pkg/storyvault/api"
	"github.com/storyvault/storyvault/pkg/storyvault/config"
)

func main() {
	// .env is optional, real deployments configure via the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	setupLogger(cfg.Environment)

	store, err := cfg.BuildBlobStore()
	if err != nil {
		slog.Error("Failed to build storage backend", "backend", cfg.StorageBackend, "err", err)
		os.Exit(1)
	}

	svc, err := storyvault.New(
		storyvault.WithBlobStore(store),
		storyvault.WithQuotas(cfg.Quotas()),
	)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Service:      svc,
		Store:        store,
		TokenAuth:    api.NewTokenAuth(cfg.AuthTokenSecret),
		MaxBodyBytes: cfg.MaxRequestSizeBytes(),
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		slog.Info("Storyvault server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"storage_backend", cfg.StorageBackend,
			"max_request_size_mb", cfg.MaxRequestSizeMB)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}

// setupLogger installs the default slog handler: colorized output during
// development, plain text elsewhere.
func setupLogger(environment string) {
	var handler slog.Handler
	if environment == "development" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}
