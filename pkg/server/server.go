// Package server provides HTTP server implementations with graceful startup and shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nimburion/requestid/pkg/observability/logger"
	"github.com/nimburion/requestid/pkg/server/router"
)

// Server wraps http.Server with configurable timeouts and graceful lifecycle management.
type Server struct {
	httpServer *http.Server
	router     router.Router
	logger     logger.Logger
	config     Config

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

// Config holds configuration for the HTTP server.
type Config struct {
	// Host is the interface to bind; empty binds all interfaces.
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new Server serving r.
func NewServer(cfg Config, r router.Router, log logger.Logger) *Server {
	return &Server{
		router: r,
		logger: log,
		config: cfg,
		ready:  make(chan struct{}),
	}
}

// Start binds the listener and serves until ctx is cancelled, then shuts down gracefully.
// Port 0 binds an ephemeral port, reported by Addr once Ready is closed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port)),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("starting server", "addr", listener.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or "" before Start has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Shutdown stops accepting connections and waits up to 30 seconds for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	s.logger.Info("shutting down server", "addr", s.Addr())

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server shutdown complete", "addr", s.Addr())
	return nil
}

// Router returns the router served by s.
func (s *Server) Router() router.Router {
	return s.router
}
