package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/nahidhasan98/perfbudget/internal/config"
	"github.com/nahidhasan98/perfbudget/internal/handlers"
	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/metrics"
	"github.com/nahidhasan98/perfbudget/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	middleware *middleware.Middleware
	hub        *Hub
	metrics    *metrics.Metrics
	log        *logger.Logger
	addr       net.Addr
}

// New creates a new HTTP server
func New(cfg *config.Config, handler *handlers.Handler, hub *Hub, m *metrics.Metrics, log *logger.Logger) *Server {
	mw := middleware.New(log, cfg.Server.RateLimit, m)
	mw.SetAPIKeys(cfg.Security.APIKeys)

	s := &Server{
		handler:    handler,
		middleware: mw,
		hub:        hub,
		metrics:    m,
		log:        log,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Limiter exposes the rate limiter for periodic cleanup
func (s *Server) Limiter() *middleware.RateLimiter {
	return s.middleware.Limiter()
}

// Handler returns the routed handler wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("GET /health", s.handler.HealthCheck)
	mux.HandleFunc("GET /api/runs", s.handler.ListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handler.GetRun)
	mux.HandleFunc("GET /api/runs/{id}/analysis", s.handler.GetRunAnalysis)
	mux.HandleFunc("GET /api/diff", s.handler.Diff)
	mux.HandleFunc("GET /api/trends", s.handler.Trends)
	mux.HandleFunc("POST /webhook/runs", s.handler.IngestRun)
	if s.hub != nil {
		mux.Handle("GET /api/live", s.hub)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Apply middleware chain
	handler := s.middleware.Recovery(mux)
	handler = s.middleware.Logging(handler)
	handler = s.middleware.Security(handler)
	handler = s.middleware.CORS(handler)
	handler = s.middleware.RateLimit(handler)
	handler = s.middleware.APIKeyAuth(handler) // Add API key authentication

	return handler
}

// Start binds the listen address and serves in the background. Serve
// errors after a successful bind are sent to errChan.
func (s *Server) Start(errChan chan<- error) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.addr = ln.Addr()
	s.log.Infof("HTTP server listening on %s", s.addr)

	// Start server in a goroutine
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, nil before Start
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	// Hijacked websocket connections are not tracked by http.Server
	if s.hub != nil {
		s.hub.Close()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("HTTP server shutdown complete")
	return nil
}
