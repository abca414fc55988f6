// Package server exposes the HTTP surface of the audio generation service:
// health, single and multi generation, configuration, and the capability
// descriptor.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/satielang/audiogen-service/internal/configstore"
	"github.com/satielang/audiogen-service/internal/generation"
)

// Route paths.
const (
	routeIndex            = "/"
	routeHealth           = "/health"
	routeGenerate         = "/generate"
	routeGenerateMultiple = "/generate_multiple"
	routeConfig           = "/config"
)

// Shutdown grace period for in-flight generations.
const shutdownTimeout = 10 * time.Second

// Server wires the dispatcher and provider config store into an HTTP
// listener.
type Server struct {
	service *generation.Service
	store   *configstore.Store
	log     *logger.Logger
	httpSrv *http.Server
}

// Options configures the HTTP listener.
type Options struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New creates the HTTP server. The listener is not started until Run.
func New(
	opts Options,
	service *generation.Service,
	store *configstore.Store,
	log *logger.Logger,
) *Server {
	srv := &Server{
		service: service,
		store:   store,
		log:     log,
		httpSrv: nil,
	}

	srv.httpSrv = &http.Server{
		Addr:         opts.Address,
		Handler:      srv.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return srv
}

// Handler builds the route table. Exposed so tests can drive the full
// surface through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(routeIndex, s.handleIndex)
	mux.HandleFunc(routeHealth, s.handleHealth)
	mux.HandleFunc(routeGenerate, s.handleGenerate)
	mux.HandleFunc(routeGenerateMultiple, s.handleGenerateMultiple)
	mux.HandleFunc(routeConfig, s.handleConfig)

	return s.withCORS(s.withRequestID(mux))
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		serveErr := s.httpSrv.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr

			return
		}

		errCh <- nil
	}()

	s.log.System("Audio generation server listening on %s", s.httpSrv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := s.httpSrv.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			return fmt.Errorf("failed to shut down server: %w", shutdownErr)
		}

		return nil
	case serveErr := <-errCh:
		if serveErr != nil {
			return fmt.Errorf("server failed: %w", serveErr)
		}

		return nil
	}
}

// withCORS adds permissive cross-origin headers so editor integrations can
// call the API directly, and answers preflight requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-ElevenLabs-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRequestID tags every request with a uuid for log correlation.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		s.log.Info("%s %s (request: %s)", r.Method, r.URL.Path, requestID)

		next.ServeHTTP(w, r)
	})
}
