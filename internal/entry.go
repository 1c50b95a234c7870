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

	"github.com/starford/walletgraph/internal/api"
	"github.com/starford/walletgraph/internal/dataset"
	"github.com/starford/walletgraph/internal/focus"
	"github.com/starford/walletgraph/internal/graphstore"
	"github.com/starford/walletgraph/internal/mcpserver"
	"github.com/starford/walletgraph/internal/render"
	"github.com/starford/walletgraph/internal/sse"
	"github.com/starford/walletgraph/internal/telemetry"
	"github.com/starford/walletgraph/internal/walletservice"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", output: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger and makes it the default.
func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// runtime is the set of components shared by every command.
type runtime struct {
	db      *graphstore.DB
	files   *dataset.FS // nil when serving the built-in dataset
	tracing *telemetry.Provider
	svc     *walletservice.Service
}

func setup(ctx context.Context, cfg *Config, logger *slog.Logger, events walletservice.Publisher) (*runtime, error) {
	rt := &runtime{}

	var provider dataset.Provider = dataset.Embedded{}
	if cfg.Dataset.Dir != "" {
		files, err := dataset.NewFS(cfg.Dataset.Dir)
		if err != nil {
			return nil, fmt.Errorf("init datasets: %w", err)
		}
		rt.files = files
		provider = files
	}

	tracing, err := telemetry.New(ctx, cfg.Tracing.Options())
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	rt.tracing = tracing

	db, err := graphstore.Open(cfg.SQLite.Path)
	if err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("init graph store: %w", err)
	}
	rt.db = db

	policy, err := focus.ParsePolicy(cfg.Focus.Policy)
	if err != nil {
		rt.close(ctx)
		return nil, err
	}

	rt.svc = walletservice.New(db, provider, events, tracing.Tracer(), logger, walletservice.Options{
		Policy:        policy,
		FitPadding:    cfg.Focus.FitPadding,
		FitDuration:   cfg.Focus.FitDuration,
		Layout:        cfg.Layout.Options(),
		PromptTimeout: cfg.Prompt.Timeout,
		Palette:       cfg.Render.ResolvedPalette(),
		Overrides:     cfg.Render.Overrides,
	})

	if err := rt.svc.Load(ctx, cfg.Dataset.Name); err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("load dataset %s: %w", cfg.Dataset.Name, err)
	}
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	if rt.svc != nil {
		rt.svc.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.tracing != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := rt.tracing.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown", slog.String("error", err.Error()))
		}
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
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("dataset_dir", cfg.Dataset.Dir),
		slog.String("dataset", cfg.Dataset.Name),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("focus_policy", cfg.Focus.Policy),
		slog.Bool("layout", cfg.Layout.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := setup(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	logger.Info("Tracing configured",
		slog.Bool("export", rt.tracing.Enabled()),
		slog.String("endpoint", cfg.Tracing.Endpoint),
		slog.String("service_name", cfg.Tracing.ServiceName))

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if rt.svc.Active() == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"loading"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
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

	// Reload the active dataset when its file changes.
	if rt.files != nil && cfg.Dataset.Watch {
		g.Go(func() error {
			if err := dataset.Watch(gCtx, rt.files, logger, rt.svc.Reload); err != nil {
				logger.Warn("dataset watcher stopped", slog.String("error", err.Error()))
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

		// Event streams never end on their own; closing the broker ends them.
		broker.Close()

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

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	rt, err := setup(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	logger.Info("MCP server starting", slog.String("dataset", app.config.Dataset.Name))
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}

// Render loads the dataset, applies the focus clicks in order and writes
// the resulting view as terminal cards.
func Render(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	rt, err := setup(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	for _, id := range app.focus {
		if _, err := rt.svc.Click(ctx, id); err != nil {
			return fmt.Errorf("focus %s: %w", id, err)
		}
	}

	v, err := rt.svc.View(ctx)
	if err != nil {
		return err
	}
	return writeView(app.output, v)
}

func writeView(w io.Writer, v *walletservice.View) error {
	if _, err := fmt.Fprintln(w, render.Sidebar(v.Summary.TotalNodes, v.Selection)); err != nil {
		return err
	}
	for _, n := range v.VisibleNodes() {
		if _, err := fmt.Fprintln(w, render.Terminal(n.Card)); err != nil {
			return err
		}
	}
	for _, e := range v.VisibleEdges() {
		if _, err := fmt.Fprintf(w, "%s -> %s  %s\n", e.Source, e.Target, e.Label); err != nil {
			return err
		}
	}
	return nil
}
