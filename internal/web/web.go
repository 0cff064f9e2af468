// Package web serves the operational HTTP surface: a JSON stats snapshot and
// Prometheus-format metrics. It is optional and only started when an address
// is configured.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/minikv/minikv/internal/logger"
	"github.com/minikv/minikv/internal/store"
	"github.com/minikv/minikv/internal/version"
)

// Server exposes stats about a store over HTTP.
type Server struct {
	addr    string
	store   *store.Store
	started time.Time
}

// New creates a web server reading from st.
func New(addr string, st *store.Store) *Server {
	return &Server{addr: addr, store: st, started: time.Now()}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("stats server listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statsResponse struct {
	Version       string `json:"version"`
	Keys          int    `json:"keys"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statsResponse{
		Version:       version.Version,
		Keys:          s.store.Size(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w, true)
}
