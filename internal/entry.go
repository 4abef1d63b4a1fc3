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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/averlund/orion/internal/api"
	"github.com/averlund/orion/internal/archive"
	"github.com/averlund/orion/internal/entity"
	"github.com/averlund/orion/internal/indexfile"
	"github.com/averlund/orion/internal/mcpserver"
	"github.com/averlund/orion/internal/para"
	"github.com/averlund/orion/internal/paraservice"
	"github.com/averlund/orion/internal/search"
	"github.com/averlund/orion/internal/sse"
	"github.com/averlund/orion/internal/vault"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger. In MCP stdio mode stdout carries the
	// protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcpStdio {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("namespace_home", cfg.Namespace.Home),
		slog.String("namespace_root", cfg.Namespace.Root),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the namespace home exists and bootstrap the category layout.
	if err := os.MkdirAll(cfg.Namespace.Home, 0o755); err != nil {
		return fmt.Errorf("create namespace home: %w", err)
	}
	if err := bootstrapNamespace(cfg.Namespace.Home, cfg.Namespace.Root); err != nil {
		return fmt.Errorf("bootstrap namespace: %w", err)
	}

	fs, err := vault.NewFS(cfg.Namespace.Home)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}
	resolver := para.NewResolver(cfg.Namespace.Root)
	store := entity.NewStore(fs, resolver, logger)
	engine := archive.NewEngine(fs, store, logger)

	if err := seedIndexes(fs, store, resolver); err != nil {
		return fmt.Errorf("seed indexes: %w", err)
	}

	// SQLite search index.
	db, err := search.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init search index: %w", err)
	}
	defer db.Close()

	// Initial reconciliation of the index with the namespace.
	if err := search.Sync(db, fs, resolver, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := paraservice.NewService(fs, store, engine, db)

	if app.mcpStdio {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher keeps the search index current and feeds SSE.
	g.Go(func() error {
		return search.Watch(gCtx, db, fs, resolver, cfg.Namespace.Home, logger, func(kind, path string) {
			broker.PublishEntityEvent(kind, path)
		})
	})

	// HTTP server.
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

// bootstrapNamespace creates the category directory layout under the
// namespace root.
func bootstrapNamespace(home, root string) error {
	for _, cat := range para.All() {
		dir := filepath.Join(home, root, filepath.FromSlash(cat.Dir()))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// seedIndexes writes an empty index document for every category that does
// not have one yet. The archive index is created lazily by the engine.
func seedIndexes(fs vault.Provider, store *entity.Store, resolver *para.Resolver) error {
	for _, cat := range para.All() {
		if cat == para.Archive {
			continue
		}
		ok, err := fs.Exists(resolver.IndexPathFor(cat))
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := store.UpdateIndex(cat, func(*indexfile.Document) {}); err != nil {
			return err
		}
	}
	return nil
}
