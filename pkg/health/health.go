// Package health exposes liveness and readiness probe endpoints.
//
// Probes are evaluated on demand when the endpoint is hit, each under its
// own timeout. Readiness additionally gates on an explicit ready flag so the
// server can drain during graceful shutdown by flipping the flag off.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports nil when the probed component is healthy.
type Check func(ctx context.Context) error

type probe struct {
	name    string
	timeout time.Duration
	check   Check
}

// Service aggregates liveness and readiness probes for a server.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []probe
	readiness []probe
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// startup has finished.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a probe for /livez. Liveness failures mean the
// process itself is broken, for example a goroutine leak.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, c Check) {
	s.mu.Lock()
	s.liveness = append(s.liveness, probe{name: name, timeout: timeout, check: c})
	s.mu.Unlock()
}

// AddReadinessCheck registers a probe for /readyz. Readiness failures mean
// the server should stop receiving traffic, for example a lost database.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, c Check) {
	s.mu.Lock()
	s.readiness = append(s.readiness, probe{name: name, timeout: timeout, check: c})
	s.mu.Unlock()
}

// SetReady flips the explicit readiness gate. Graceful shutdown flips it off
// before draining so load balancers route new traffic elsewhere.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the ready gate is open and every readiness probe
// currently passes.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	s.mu.RLock()
	probes := s.readiness
	s.mu.RUnlock()
	return len(runProbes(context.Background(), probes)) == 0
}

// runProbes executes each probe under its own timeout and returns the
// failures keyed by probe name.
func runProbes(ctx context.Context, probes []probe) map[string]string {
	var failures map[string]string
	for _, p := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.check(probeCtx)
		cancel()
		if err != nil {
			if failures == nil {
				failures = make(map[string]string)
			}
			failures[p.name] = err.Error()
		}
	}
	return failures
}

type probeReport struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

func writeReport(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	report := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		report = probeReport{Status: "unavailable", Failures: failures}
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

// LiveEndpoint serves /livez. 200 when every liveness probe passes, 503 with
// the failures otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	probes := s.liveness
	s.mu.RUnlock()

	writeReport(w, runProbes(r.Context(), probes))
}

// ReadyEndpoint serves /readyz. 200 only when the ready gate is open and
// every readiness probe passes.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	probes := s.readiness
	s.mu.RUnlock()

	failures := runProbes(r.Context(), probes)
	if !s.ready.Load() {
		if failures == nil {
			failures = make(map[string]string)
		}
		failures["ready"] = "service not marked ready"
	}
	writeReport(w, failures)
}
