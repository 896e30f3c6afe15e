package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
)

// Server represents an HTTP server
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   logging.Logger
}

// New creates a new server instance. The write timeout leaves room for the
// slowest AI provider call.
func New(handler http.Handler, port string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listener and serves in the background. Bind failures are
// returned; later serve failures arrive on the returned channel.
func (s *Server) Start() (<-chan error, error) {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, errors.TransportError("failed to bind "+s.srv.Addr, err)
	}
	s.listener = listener

	errs := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
		close(errs)
	}()

	s.logger.Info("Server listening", logging.Field{"address", listener.Addr().String()})
	return errs, nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
