package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ObservabilityServer exposes Prometheus metrics and a liveness probe while
// a search or watch is running.
type ObservabilityServer struct {
	addr    string
	runID   string
	started time.Time
	server  *http.Server
}

func NewObservabilityServer(addr, runID string) *ObservabilityServer {
	return &ObservabilityServer{
		addr:  addr,
		runID: runID,
	}
}

type healthStatus struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
	Uptime string `json:"uptime"`
}

func (s *ObservabilityServer) handler() http.Handler {
	mux := http.NewServeMux()

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthStatus{
			Status: "up",
			RunID:  s.runID,
			Uptime: time.Since(s.started).Round(time.Second).String(),
		})
	})
	return mux
}

// Start binds addr and serves in the background. A bind failure is
// returned; later serve errors are logged.
func (s *ObservabilityServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.started = time.Now()
	s.server = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	slog.Info("observability server starting", "addr", listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
