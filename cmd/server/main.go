package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	"github.com/tendant/simple-oss/pkg/simpleoss/api"
	"github.com/tendant/simple-oss/pkg/simpleoss/config"
	"github.com/tendant/simple-oss/pkg/simpleoss/presigned"
	memorystorage "github.com/tendant/simple-oss/pkg/simpleoss/storage/memory"
)

const storageRoute = "/storage"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	opts := []config.Option{config.WithDotEnv()}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		opts = append(opts, config.WithFile(path))
	}
	opts = append(opts, config.WithEnv(), withMemoryBaseURLs())

	cfg, err := config.Load(opts...)
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	registry, err := cfg.BuildRegistry(simpleoss.WithLogger(logger))
	if err != nil {
		slog.Error("Failed to build disks", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)

	handlers := api.NewHandlers(registry, api.WithLogger(logger))
	actions := api.Chain(handlers.Routes(),
		api.RequestIDMiddleware,
		api.LoggingMiddleware(logger),
		api.RecoveryMiddleware(logger),
		api.CORSMiddleware(nil, nil, nil),
		api.RequestSizeLimitMiddleware(1<<20),
	)

	if cfg.APIKeySHA256 != "" {
		apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{"key1": cfg.APIKeySHA256},
		})
		if err != nil {
			slog.Error("Failed initialize API Key middleware", "err", err)
			os.Exit(1)
		}
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Mount("/", actions)
		})
	} else {
		slog.Warn("API_KEY_SHA256 not set, actions are unauthenticated")
		r.Mount("/api/v1", actions)
	}

	mountMemoryStores(r, registry)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment, "disks", registry.Names())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("Server exiting")
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// withMemoryBaseURLs points memory disks without a base URL at the routes
// this server mounts for them, so their signed URLs resolve here.
func withMemoryBaseURLs() config.Option {
	return func(c *config.ServerConfig) error {
		base := os.Getenv("PUBLIC_BASE_URL")
		if base == "" {
			base = "http://localhost:" + c.Port
		}
		for i, disk := range c.Disks {
			if disk.Driver == config.DriverMemory && disk.BaseURL == "" {
				c.Disks[i].BaseURL = base + storageRoute + "/" + disk.Name
			}
		}
		return nil
	}
}

// mountMemoryStores serves every memory disk behind signature checks.
func mountMemoryStores(r chi.Router, registry *simpleoss.Registry) {
	for _, name := range registry.Names() {
		adapter, err := registry.Client(name)
		if err != nil {
			continue
		}
		backend, ok := adapter.Store().(*memorystorage.Backend)
		if !ok {
			continue
		}
		h := presigned.NewHandlers(backend, backend.Signer())
		r.Route(storageRoute+"/"+name, h.Mount)
		slog.Info("Serving memory disk", "disk", name, "route", storageRoute+"/"+name)
	}
}
