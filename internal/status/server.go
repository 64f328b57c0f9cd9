// Package status serves the bot's liveness and progress endpoints. The
// process runs unattended for weeks; this is the only way to ask it how the
// hunt is going without tailing logs.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slotseeker/slotseeker/pkg/logging"
)

// Snapshot is one point-in-time view of the hunt, served as JSON.
type Snapshot struct {
	Bot         string    `json:"bot"`
	StartedAt   time.Time `json:"started_at"`
	LastSweep   time.Time `json:"last_sweep,omitzero"`
	NextSweep   time.Time `json:"next_sweep,omitzero"`
	Pending     int       `json:"pending_patients"`
	Bookings    int       `json:"bookings"`
	LastOutcome string    `json:"last_outcome,omitempty"`
}

// Server exposes /healthz, /status and /metrics.
type Server struct {
	addr     string
	snapshot func() Snapshot
	logger   *logging.Logger
	handler  http.Handler
}

// NewServer creates a status server. snapshot is polled on every /status
// request and must be safe for concurrent use.
func NewServer(addr string, snapshot func() Snapshot, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{addr: addr, snapshot: snapshot, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())
	s.handler = r
	return s
}

// Handler returns the routed handler, mountable in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
