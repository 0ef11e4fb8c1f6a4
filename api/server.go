package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/loomline/storefront-backend/pkg/logger"
)

const shutdownGrace = 15 * time.Second

// Server wraps http.Server with context-driven graceful shutdown so the API
// binary can share the signal handling used by the worker binaries.
type Server struct {
	srv  *http.Server
	logg *logger.Logger
}

func NewServer(addr string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logg: logg,
	}
}

// Run serves until the context is canceled, then drains in-flight requests.
// In-flight requests get shutdownGrace to finish before the listener dies.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if s.logg != nil {
		s.logg.Info(ctx, "draining http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
