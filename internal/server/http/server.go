// Package httpserver provides the HTTP API server for the scholar harvest
// service: the streaming harvest endpoint and the artifact download endpoint.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/scholarcsv/scholar-harvest-service/internal/domain"
	"github.com/scholarcsv/scholar-harvest-service/internal/harvest"
	"github.com/scholarcsv/scholar-harvest-service/internal/observability"
)

// Harvester runs one harvest and returns its ordered event stream.
type Harvester interface {
	Run(ctx context.Context, req domain.HarvestRequest) <-chan harvest.Event
}

// ArtifactGetter looks up a stored CSV artifact by filename.
type ArtifactGetter interface {
	Get(filename string) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	harvester  Harvester
	artifacts  ArtifactGetter
	logger     zerolog.Logger
	metrics    *observability.Metrics
	validate   *validator.Validate
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	harvester Harvester,
	artifacts ArtifactGetter,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		harvester: harvester,
		artifacts: artifacts,
		logger:    logger.With().Str("component", "http-server").Logger(),
		metrics:   metrics,
		validate:  validator.New(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:        cfg.Address,
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout bounds the whole response, including the harvest SSE
		// stream; it must stay comfortably above the longest harvest.
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/harvests", s.startHarvest)
		r.Get("/artifacts/{filename}", s.downloadArtifact)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler returns readiness status. The service holds no external
// connections at startup, so readiness matches liveness.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
