// Package statusapi exposes the daemon's operational surface: liveness and
// the Prometheus text exposition, nothing about intent submission. The core
// itself stays a library invoked in-process, not a network service; this is
// the optional HTTP status surface that wraps it for operators — a small
// struct holding its listen address plus injectable collaborators set via
// SetXxx, with net/http handlers tested through httptest.
package statusapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/zmlAEQ/airlock-core/pkg/metrics"
)

func newListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// HealthReporter reports whether the daemon's core services are up.
type HealthReporter interface {
	Healthy() (bool, string)
}

// Service is a minimal HTTP surface: GET /healthz and GET /metrics. It
// implements pkg/lifecycle.Service so it can be registered on the same
// Manager as the orchestrator's own background sweep.
type Service struct {
	addr   string
	srv    *http.Server
	health HealthReporter
}

// New returns a Service listening on addr once started. health may be nil,
// in which case /healthz always reports ok.
func New(addr string, health HealthReporter) *Service {
	return &Service{addr: addr, health: health}
}

// SetHealthReporter swaps the health collaborator.
func (s *Service) SetHealthReporter(h HealthReporter) { s.health = h }

func (s *Service) Name() string { return "statusapi" }

func (s *Service) Start(_ context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/metrics", s.handleMetrics)
	s.srv = &http.Server{Addr: s.addr, Handler: mux}

	ln, err := newListener(s.addr)
	if err != nil {
		return err
	}
	go func() {
		_ = s.srv.Serve(ln)
	}()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ok, reason := true, "ok"
	if s.health != nil {
		ok, reason = s.health.Healthy()
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": ok, "reason": reason})
}

func (s *Service) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(metrics.DumpProm()))
}
