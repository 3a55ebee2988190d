package http

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// HealthCheckFunc performs a single dependency check.
type HealthCheckFunc func(ctx context.Context) error

// StatsFunc returns a JSON-encodable snapshot shown on /ready. Stats never
// affect readiness.
type StatsFunc func() any

// HealthStatus is the body of /ready.
type HealthStatus struct {
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Stats     map[string]any         `json:"stats,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Message  string `json:"message"`
	Duration string `json:"duration"`
}

// HealthChecker runs named dependency checks (postgres, redis, catalog).
type HealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]HealthCheckFunc
	stats     map[string]StatsFunc
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewHealthChecker creates an empty checker.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		checks:    make(map[string]HealthCheckFunc),
		stats:     make(map[string]StatsFunc),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// AddCheck registers a named check, replacing any previous one.
func (c *HealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// AddStats registers a named snapshot, replacing any previous one.
func (c *HealthChecker) AddStats(name string, fn StatsFunc) {
	c.mu.Lock()
	c.stats[name] = fn
	c.mu.Unlock()
}

// Check runs all checks concurrently, each bounded by the checker timeout.
func (c *HealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]HealthCheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	stats := make(map[string]StatsFunc, len(c.stats))
	for name, fn := range c.stats {
		stats[name] = fn
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Version:   c.version,
		Timestamp: time.Now().UTC(),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for name, check := range checks {
		name, check := name, check
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := check(checkCtx)
			result := CheckResult{
				Healthy:  err == nil,
				Message:  "OK",
				Duration: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				result.Message = err.Error()
			}

			mu.Lock()
			status.Checks[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for name, result := range status.Checks {
		if !result.Healthy {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		status.Ready = false
		status.Message = "failed: " + strings.Join(failed, ", ")
	}

	if len(stats) > 0 {
		status.Stats = make(map[string]any, len(stats))
		for name, fn := range stats {
			status.Stats[name] = fn()
		}
	}
	return status
}

// handleHealth reports liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.config.Version,
	})
}

// handleReady reports dependency readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, r, http.StatusOK, HealthStatus{Ready: true, Version: s.config.Version, Timestamp: time.Now().UTC()})
		return
	}

	status := s.deps.Health.Check(r.Context())
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}
