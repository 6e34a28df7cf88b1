// Package cli hosts the HTTP surface of a running unpack process.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unpack/internal/core/app"
)

// HealthChecker is satisfied by app.HealthService.
type HealthChecker interface {
	Check(ctx context.Context) app.HealthStatus
}

type ObservabilityServer struct {
	addr   string
	health HealthChecker
	server *http.Server
	bound  string
}

func NewObservabilityServer(addr string, health HealthChecker) *ObservabilityServer {
	return &ObservabilityServer{addr: addr, health: health}
}

// Handler serves /metrics and /health.
func (s *ObservabilityServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := s.health.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Warn("failed to encode health status", "error", err)
		}
	})
	return mux
}

// Start binds the listener synchronously so address errors surface to the
// caller, then serves in the background.
func (s *ObservabilityServer) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.bound = ln.Addr().String()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("observability server starting", "addr", s.bound)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address once Start has returned.
func (s *ObservabilityServer) Addr() string {
	return s.bound
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
