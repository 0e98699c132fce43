// Package server exposes the SeeQL HTTP API: run a query, explain a
// query, list and upload datasets, export results. Errors from user
// queries are part of the learning experience, so they come back as
// structured explanations in the response body, not as failed
// requests.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/seeql-labs/seeql/internal/augment"
	"github.com/seeql-labs/seeql/internal/dataset"
	"github.com/seeql-labs/seeql/internal/executor"
	"github.com/seeql-labs/seeql/internal/explain"
)

// Server is the SeeQL API server.
type Server struct {
	engine       *executor.Engine
	registry     *dataset.Registry
	explainer    *explain.Explainer
	augmenter    augment.Augmenter
	sessionStore *sessions.CookieStore
	port         int
	datasetsDir  string
	logger       *slog.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Engine        *executor.Engine
	Registry      *dataset.Registry
	Explainer     *explain.Explainer
	Augmenter     augment.Augmenter
	Port          int
	SessionSecret string

	// DatasetsDir, when non-empty, is watched for CSV files.
	DatasetsDir string

	Logger *slog.Logger
}

// New creates a new API server instance.
func New(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	aug := cfg.Augmenter
	if aug == nil {
		aug = augment.Noop{}
	}
	explainer := cfg.Explainer
	if explainer == nil {
		explainer = explain.NewExplainer(aug, 0, logger)
	}

	return &Server{
		engine:       cfg.Engine,
		registry:     cfg.Registry,
		explainer:    explainer,
		augmenter:    aug,
		sessionStore: sessionStore,
		port:         cfg.Port,
		datasetsDir:  cfg.DatasetsDir,
		logger:       logger,
	}
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Routes() chi.Router {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleCreateSession)
		r.Get("/datasets", s.handleListDatasets)
		r.Get("/datasets/{name}", s.handleGetDataset)
		r.Post("/upload", s.handleUpload)
		r.Post("/query", s.handleQuery)
		r.Post("/explain", s.handleExplain)
		r.Post("/export", s.handleExport)
	})

	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting SeeQL server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Watch the datasets directory if configured.
	if s.datasetsDir != "" {
		eg.Go(func() error {
			return s.registry.Watch(egctx, s.datasetsDir)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
