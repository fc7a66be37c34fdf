// Package http exposes the tester's operational endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/stacktester/internal/logging"
	"github.com/aretw0/stacktester/pkg/ports"
	"github.com/aretw0/stacktester/pkg/registry"
)

const shutdownTimeout = 5 * time.Second

// Pinger is implemented by databases that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves /metrics, /healthz and /transactions.
type Server struct {
	Gatherer prometheus.Gatherer
	Database ports.Database
	Registry *registry.Registry
	Logger   *slog.Logger
}

type health struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Error  string `json:"error,omitempty"`
}

type transactions struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

// NewHandler creates the router for s.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	if s.Registry == nil {
		s.Registry = registry.Default
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.Health)
	r.Get("/transactions", s.Transactions)
	return r
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := health{Status: "ok"}
	code := http.StatusOK
	if s.Database != nil {
		resp.Store = s.Database.Name()
		if p, ok := s.Database.(Pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				resp.Status, resp.Error = "unavailable", err.Error()
				code = http.StatusServiceUnavailable
				s.Logger.Warn("store ping failed", "store", resp.Store, "err", err)
			}
		}
	}
	writeJSON(w, code, resp, s.Logger)
}

// Transactions handles GET /transactions.
func (s *Server) Transactions(w http.ResponseWriter, r *http.Request) {
	names := s.Registry.Names()
	writeJSON(w, http.StatusOK, transactions{Count: len(names), Names: names}, s.Logger)
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: shutdownTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("serving http", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		return nil
	}
}
