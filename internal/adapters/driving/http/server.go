package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driving"
)

// RequestObserver records completed HTTP requests
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	contextService driving.ContextService

	// Infrastructure
	verifier       driven.IdentityVerifier // nil: identity comes from the request body
	limiter        driven.RateLimiter      // nil: unlimited
	metricsHandler http.Handler            // nil: /metrics not mounted
	observer       RequestObserver
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string

	// WriteTimeout bounds a whole response, streams included
	WriteTimeout time.Duration

	// MetricsHandler serves GET /metrics when set
	MetricsHandler http.Handler
	// Observer receives per-request measurements when set
	Observer RequestObserver

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		WriteTimeout: 330 * time.Second,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	contextService driving.ContextService,
	verifier driven.IdentityVerifier, // can be nil
	limiter driven.RateLimiter, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		contextService: contextService,
		verifier:       verifier,
		limiter:        limiter,
		metricsHandler: cfg.MetricsHandler,
		observer:       cfg.Observer,
	}

	s.setupRoutes()

	var h http.Handler = s.router
	if s.observer != nil {
		h = NewMetricsMiddleware(s.observer).Handler(h)
	}
	if len(cfg.AllowedOrigins) > 0 {
		h = NewCORSMiddleware(cfg.AllowedOrigins).Handler(h)
	}
	h = NewLoggingMiddleware(logger).Handler(h)
	s.handler = NewRecoveryMiddleware(logger).Handler(h)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	identity := NewIdentityMiddleware(s.verifier)
	limit := NewRateLimitMiddleware(s.limiter, s.logger)

	// Health endpoints (no identity)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	if s.metricsHandler != nil {
		s.router.Handle("GET /metrics", s.metricsHandler)
	}

	// Pipeline endpoints
	s.router.Handle("POST /api/v1/chat/completions",
		identity.Handler(limit.Handler(http.HandlerFunc(s.handleChatCompletions))))
	s.router.Handle("POST /api/v1/context",
		identity.Handler(limit.Handler(http.HandlerFunc(s.handleContext))))
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
