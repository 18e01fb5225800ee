package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"gridbot/internal/metrics"
)

// Server exposes /health and /metrics over HTTP.
type Server struct {
	supervisor *Supervisor
	logger     *slog.Logger
	srv        *http.Server
}

// NewServer builds the HTTP surface around a supervisor.
func NewServer(addr string, supervisor *Supervisor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{supervisor: supervisor, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Collector.Handler())

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

// handleHealth serves the latest composite snapshot. DOWN maps to 503 so
// load balancers and uptime checks need no body parsing.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.supervisor.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if snap.Status == StatusDown {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Error("encode health snapshot", "err", err)
	}
}
