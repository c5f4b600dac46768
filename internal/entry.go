// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/kasten/internal/api"
	"github.com/starford/kasten/internal/mcpserver"
	"github.com/starford/kasten/internal/models"
	"github.com/starford/kasten/internal/notestore"
	"github.com/starford/kasten/internal/render"
	"github.com/starford/kasten/internal/sse"
	"github.com/starford/kasten/internal/storage"
	"github.com/starford/kasten/internal/tree"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// openBackend returns the configured backend and a function releasing it.
func (a *application) openBackend() (storage.Backend, func() error, error) {
	noop := func() error { return nil }
	if a.backend != nil {
		return a.backend, noop, nil
	}

	cfg := a.config.Store
	switch cfg.Backend {
	case BackendFile:
		f, err := storage.NewFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, noop, nil
	case BackendSQLite:
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case BackendDiskv:
		d, err := storage.NewDiskv(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return d, noop, nil
	case BackendMemory:
		return storage.NewMemory(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("store_path", cfg.Store.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	backend, closeBackend, err := app.openBackend()
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("close storage failed", slog.String("error", err.Error()))
		}
	}()

	store := notestore.Open(ctx, backend, logger)

	// SSE broker.
	broker := sse.NewBroker(cfg.Outline.TreeThrottle)
	defer broker.Close()

	h := api.NewHandler(api.HandlerConfig{
		Store:           store,
		Renderer:        render.NewMarkdown(),
		Notifier:        broker,
		DefaultAddress:  cfg.Outline.DefaultAddress,
		ResolveDebounce: cfg.Outline.ResolveDebounce,
	})
	defer h.Close()
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","notes":%d}`, len(store.Notes()))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Pick up edits made to the blob file outside the app.
	if file, ok := backend.(*storage.File); ok {
		g.Go(func() error {
			err := storage.Watch(gCtx, file.Path(), logger, func() {
				if !file.Stale() {
					return
				}
				// A half-written edit fails to decode; the next write event retries.
				if err := store.Reload(gCtx); err != nil {
					return
				}
				broker.PublishTreeUpdated()
			})
			if err != nil {
				logger.Warn("file watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	backend, closeBackend, err := app.openBackend()
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer func() { _ = closeBackend() }()

	store := notestore.Open(ctx, backend, logger)
	logger.Info("MCP server starting", slog.Int("notes", len(store.Notes())))

	srv := mcpserver.New(store, app.config.Outline.DefaultAddress)
	return srv.ServeStdio()
}

// PrintTree writes the indented outline, one row per line, with each
// note's title after its address.
func PrintTree(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	backend, closeBackend, err := app.openBackend()
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer func() { _ = closeBackend() }()

	notes := notestore.Open(ctx, backend, logger).Notes()
	titles := make(map[string]string, len(notes))
	for _, n := range notes {
		titles[n.ID] = render.Title(n.Content)
	}

	out := tree.Indent(tree.Derive(notes), "  ", func(r models.Row) string {
		return titles[r.NoteID]
	})
	_, err = io.WriteString(app.out, out)
	return err
}
