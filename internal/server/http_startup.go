package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer, err := s.setupHTTPServer()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
	}

	s.displayServerInfo(listener.Addr().String(), httpServer.TLSConfig != nil)

	return s.startWithGracefulShutdown(ctx, httpServer, listener)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() (*http.Server, error) {
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(s.cfg.Host, s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	if err := s.configureTLS(httpServer); err != nil {
		return nil, err
	}
	return httpServer, nil
}

// startWithGracefulShutdown serves on listener and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server, listener net.Listener) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("Starting HTTP server",
			"address", listener.Addr().String(),
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// certificates are already loaded in the TLS config
			err = server.ServeTLS(listener, "", "")
		} else {
			err = server.Serve(listener)
		}

		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		s.cleanupRateLimiter()
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutdown requested, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.cleanupRateLimiter()

	s.logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.logger.Debug("Rate limiter cleaned up")
	}
}
