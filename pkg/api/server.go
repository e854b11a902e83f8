package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/pkg/api/auth"
	"github.com/localix/preloadd/pkg/preload"
)

// Server provides the management HTTP API.
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server in a stopped state. Call Start()
// to begin serving requests.
//
// Defaults are applied here so the server works when created directly
// (e.g., in tests). This is idempotent with the defaults applied during
// config loading.
//
// Returns an error when a JWT secret is configured but too short.
func NewServer(config APIConfig, scheduler *preload.Scheduler) (*Server, error) {
	config.ApplyDefaults()

	var jwtService *auth.JWTService
	if config.JWT.Secret != "" {
		svc, err := auth.NewJWTService(config.JWT.Secret, config.JWT.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("api jwt: %w", err)
		}
		jwtService = svc
	} else {
		logger.Warn("API authentication disabled: no JWT secret configured")
	}

	// Event streams never go idle; cancelling their base context on
	// shutdown lets Shutdown finish.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      NewRouter(scheduler, jwtService),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	return &Server{
		server: server,
		config: config,
	}, nil
}

// Start starts the API HTTP server and blocks until the context is cancelled
// or an error occurs. When the context is cancelled, Start initiates
// graceful shutdown and returns.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("API server failed to listen: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", logger.KeyAddr, ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.KeyError, err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured for.
func (s *Server) Port() int {
	return s.config.Port
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
