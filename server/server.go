package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/agentplane/agentplane/faults"
)

const shutdownGrace = 15 * time.Second

// Server runs the management surface until its context is canceled,
// then drains in-flight requests.
type Server struct {
	http *http.Server
	log  logr.Logger
}

func New(listen string, handler http.Handler, log logr.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.http.ListenAndServe()
	}()
	s.log.Info("management server listening", "address", s.http.Addr)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return faults.Internal("the management server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return faults.Internal("the management server did not shut down cleanly", err)
	}
	s.log.Info("management server stopped")
	return nil
}
