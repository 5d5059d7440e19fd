// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness probes with per-dependency
// status for container orchestrators.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/mediablock/internal/log"
)

// Status is the aggregated state of a probe or of one dependency.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse reports whether s outranks o.
func (s Status) worse(o Status) bool {
	return s.rank() > o.rank()
}

func (s Status) rank() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

const checkTimeout = 2 * time.Second

// CheckResult is one dependency's outcome.
type CheckResult struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker probes one dependency (store, cache, grade sink).
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates the registered checkers.
type Manager struct {
	version string
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version, started: time.Now()}
}

// RegisterChecker adds c to every subsequent probe.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, c)
	m.mu.Unlock()
}

func (m *Manager) snapshot() []Checker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Checker(nil), m.checkers...)
}

// probe runs every checker concurrently, each bounded by checkTimeout, and
// returns the per-name results with the worst status seen.
func probe(ctx context.Context, checkers []Checker) (map[string]CheckResult, Status) {
	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			began := time.Now()
			res := c.Check(cctx)
			res.LatencyMS = time.Since(began).Milliseconds()
			results[i] = res
		}(i, c)
	}
	wg.Wait()

	byName := make(map[string]CheckResult, len(checkers))
	overall := StatusHealthy
	for i, c := range checkers {
		byName[c.Name()] = results[i]
		if results[i].Status.worse(overall) {
			overall = results[i].Status
		}
	}
	return byName, overall
}

// Health answers liveness. The process is alive whatever its dependencies
// report; verbose includes them.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started).Seconds()),
		Timestamp: time.Now(),
	}
	if checkers := m.snapshot(); verbose && len(checkers) > 0 {
		resp.Checks, resp.Status = probe(ctx, checkers)
	}
	return resp
}

// Ready answers readiness. Only an unhealthy dependency makes the service
// unready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{Ready: true, Status: StatusHealthy, Timestamp: time.Now()}
	if checkers := m.snapshot(); len(checkers) > 0 {
		resp.Checks, resp.Status = probe(ctx, checkers)
		resp.Ready = resp.Status != StatusUnhealthy
	}
	return resp
}

// ServeHealth always answers 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	writeProbe(w, r, "health", http.StatusOK, m.Health(r.Context(), verbose))
}

// ServeReady answers 503 while any critical dependency is unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Warn().
			Str(log.FieldEvent, "readiness.failed").
			Str("status", string(resp.Status)).
			Msg("service not ready")
	}
	writeProbe(w, r, "readiness", code, resp)
}

func writeProbe(w http.ResponseWriter, r *http.Request, kind string, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().Err(err).
			Str(log.FieldEvent, kind+".encode_error").
			Msg("probe response not written")
	}
}

// PingChecker reports a dependency through a ping function.
// A failing critical dependency is unhealthy; others are degraded.
type PingChecker struct {
	name     string
	ping     func(ctx context.Context) error
	critical bool
}

// NewPingChecker creates a checker named name.
func NewPingChecker(name string, critical bool, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping, critical: critical}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if c.ping == nil {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	if err := c.ping(ctx); err != nil {
		status := StatusDegraded
		if c.critical {
			status = StatusUnhealthy
		}
		return CheckResult{Status: status, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "ok"}
}
