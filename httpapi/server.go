// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server serves the daemon's HTTP surface on a TCP listener. Serve
// blocks until ctx is cancelled, then drains in-flight requests
// (including open SSE streams, which exit on their own once
// r.Context() is cancelled) up to ShutdownTimeout.
type Server struct {
	address         string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	ready chan struct{}
	addr  net.Addr
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address is the TCP listen address (e.g. "127.0.0.1:4851"). Required.
	Address string

	// Handler is typically the result of NewRouter. Required.
	Handler http.Handler

	// ShutdownTimeout bounds how long Serve waits for in-flight
	// requests and SSE streams to drain after ctx is cancelled.
	// Defaults to 10 seconds if zero.
	ShutdownTimeout time.Duration

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// NewServer creates a server bound to config.Address once Serve runs.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		panic("httpapi.Server: Address is required")
	}
	if config.Handler == nil {
		panic("httpapi.Server: Handler is required")
	}
	if config.Logger == nil {
		panic("httpapi.Server: Logger is required")
	}

	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Server{
		address:         config.Address,
		handler:         config.Handler,
		logger:          config.Logger,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}
}

// Ready returns a channel closed once the server is bound and accepting.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the resolved listen address. Only valid after Ready closes.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Serve accepts connections until ctx is cancelled, then shuts down
// gracefully. SSE handlers rely on r.Context() being derived from the
// server's base context so long-lived streams unblock promptly on
// shutdown rather than waiting out ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler: s.handler,

		BaseContext: func(net.Listener) context.Context { return ctx },

		// Session event streams are long-lived SSE connections held
		// open by design; generous header/read timeouts protect
		// against slow clients without punishing them.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("http server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}
