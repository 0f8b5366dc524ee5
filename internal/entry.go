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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/temple/internal/api"
	"github.com/starford/temple/internal/autorender"
	"github.com/starford/temple/internal/index"
	"github.com/starford/temple/internal/metrics"
	"github.com/starford/temple/internal/noteservice"
	"github.com/starford/temple/internal/resolver"
	"github.com/starford/temple/internal/settings"
	"github.com/starford/temple/internal/sse"
	"github.com/starford/temple/internal/storage"
)

// Runtime holds the components shared by the server, the CLI commands and
// the MCP server.
type Runtime struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *storage.FS
	DB      *index.DB
	Metrics *metrics.Metrics
	Service *noteservice.Service
}

// Open builds a Runtime from the given options. Callers must Close it.
func Open(opts ...Option) (*Runtime, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	st, err := settings.Load(cfg.Settings.Path, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	m := metrics.New()
	svcOpts := append([]noteservice.Option{
		noteservice.WithJournal(db),
		noteservice.WithIndexer(db),
		noteservice.WithMetrics(m),
		noteservice.WithLogger(logger),
	}, app.serviceOpts...)

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		DB:      db,
		Metrics: m,
		Service: noteservice.NewService(store, st, svcOpts...),
	}, nil
}

// Close releases the index database.
func (rt *Runtime) Close() error {
	return rt.DB.Close()
}

// Run starts the HTTP server, the vault watcher and the auto-render
// subscriber, and blocks until ctx ends or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	opts = append(opts, WithServiceOptions(noteservice.WithPublisher(broker)))
	rt, err := Open(opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger, db, svc := rt.Config, rt.Logger, rt.DB, rt.Service

	// Run initial sync so the watcher can tell new documents from rewrites.
	if err := index.Sync(db, rt.Store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	subscriber := autorender.New(svc.Settings(), autorender.RendererFunc(func(ctx context.Context, path string) error {
		_, err := svc.RenderCreated(ctx, path)
		return err
	}), logger)

	apiRouter := api.NewRouter(svc, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", rt.Metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	subscriber.Start(gCtx)

	// Start file watcher; every absorbed change fans out to SSE and auto-render.
	if cfg.Vault.Watch {
		g.Go(func() error {
			templateDir := func() string { return svc.Settings().Snapshot().Core.TemplateDirectory }
			err := index.Watch(gCtx, db, rt.Store, cfg.Vault.Path, logger, func(kind, path string) {
				broker.PublishDocument(kind, path, resolver.InDirectory(path, templateDir()))
				subscriber.OnIndexEvent(kind, path)
			})
			if err != nil {
				return fmt.Errorf("watcher error: %w", err)
			}
			return nil
		})
	} else {
		logger.Info("watcher: disabled, auto-render receives no events")
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		subscriber.Stop()

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown ends the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
