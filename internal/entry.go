// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/api"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/apperr"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/mcpserver"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/noteservice"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/remote"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/sse"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/store"
	syncengine "github.com/stefan-niedermann/OwnCloud-Notes/internal/sync"
	pkgconfig "github.com/stefan-niedermann/OwnCloud-Notes/pkg/config"
)

// Run starts the sync daemon with the given options: HTTP API, SSE event
// stream, and periodic background synchronization.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger. The level is held in a LevelVar so
	// config hot reload can adjust it at runtime.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("accounts", len(cfg.Accounts)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize SQLite store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Make sure every configured account exists locally.
	if err := ensureAccounts(db, cfg.Accounts, logger); err != nil {
		return fmt.Errorf("ensure accounts: %w", err)
	}

	// Build the sync engine.
	creds := remote.NewCredentials(cfg.Tokens())
	client := app.client
	if client == nil {
		client = remote.NewHTTPClient(cfg.Remote.Timeout)
	}
	syncer := syncengine.NewSyncer(db, client, creds, logger)
	coordinator := syncengine.NewCoordinator(syncer, db, creds, logger)

	// SSE broker, fed by completed passes.
	broker := sse.NewBroker()
	defer broker.Close()
	coordinator.AddStartListener(broker.PublishSyncStarted)
	coordinator.AddListener(broker.PublishSyncFinished)

	// Build API service and router.
	svc := noteservice.NewService(db)
	svc.SetChangeListener(broker.PublishNoteChanged)
	apiRouter := api.NewRouter(svc, db, coordinator, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Periodic background sync.
	if cfg.Sync.Interval > 0 {
		g.Go(func() error {
			runPeriodicSync(gCtx, coordinator, cfg.Sync.Interval, logger)
			return nil
		})
	}

	// Config hot reload (log level only; everything else needs a restart).
	if app.configPath != "" {
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, app.configPath, func(fresh *Config) {
				if fresh.App.LogLevel != level.Level() {
					logger.Info("log level changed", slog.String("level", fresh.App.LogLevel.String()))
					level.Set(fresh.App.LogLevel)
				}
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// SyncOnce builds the engine and runs a single pass for every configured
// account, then returns. Used by the one-shot CLI command.
func SyncOnce(ctx context.Context, cfg *Config, pushOnly bool) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	if err := ensureAccounts(db, cfg.Accounts, logger); err != nil {
		return fmt.Errorf("ensure accounts: %w", err)
	}

	creds := remote.NewCredentials(cfg.Tokens())
	client := remote.NewHTTPClient(cfg.Remote.Timeout)
	syncer := syncengine.NewSyncer(db, client, creds, logger)
	coordinator := syncengine.NewCoordinator(syncer, db, creds, logger)

	return coordinator.SyncAll(ctx, pushOnly)
}

// ServeMCP builds the engine and serves the MCP tools over stdio until the
// client disconnects. Logs go to stderr because stdout carries the protocol.
func ServeMCP(_ context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	if err := ensureAccounts(db, cfg.Accounts, logger); err != nil {
		return fmt.Errorf("ensure accounts: %w", err)
	}

	creds := remote.NewCredentials(cfg.Tokens())
	client := remote.NewHTTPClient(cfg.Remote.Timeout)
	syncer := syncengine.NewSyncer(db, client, creds, logger)
	coordinator := syncengine.NewCoordinator(syncer, db, creds, logger)
	svc := noteservice.NewService(db)

	return mcpserver.New(svc, coordinator).ServeStdio()
}

// ensureAccounts creates any configured account that does not exist locally
// yet, matched by the unique account name.
func ensureAccounts(db store.Store, accounts []AccountConfig, logger *slog.Logger) error {
	for _, ac := range accounts {
		_, err := db.GetAccountByName(ac.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		id, err := db.CreateAccount(models.Account{
			Name:     ac.Name,
			URL:      strings.TrimRight(ac.URL, "/"),
			Username: ac.Username,
		})
		if err != nil {
			return err
		}
		logger.Info("account created", slog.Int64("id", id), slog.String("name", ac.Name))
	}
	return nil
}

// runPeriodicSync runs a full pass for all accounts on startup and then on
// every tick until ctx is cancelled.
func runPeriodicSync(ctx context.Context, coordinator *syncengine.Coordinator, interval time.Duration, logger *slog.Logger) {
	logger.Info("periodic sync enabled", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := coordinator.SyncAll(ctx, false); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := coordinator.SyncAll(ctx, false); err != nil {
				logger.Warn("periodic sync failed", slog.String("error", err.Error()))
			}
		}
	}
}
