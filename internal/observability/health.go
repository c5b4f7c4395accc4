package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// ReadinessResponse is the readiness body, one result per check.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HealthChecker is implemented by backends that can report their own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check is one named readiness check. Run returns a short detail for the
// response body, or an error when the designer cannot serve.
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

var errNoLayouts = errors.New("no layout templates loaded")

// LayoutsCheck passes while at least one layout template is registered.
func LayoutsCheck(count func() int) Check {
	return Check{Name: "layouts", Run: func(context.Context) (string, error) {
		n := count()
		if n == 0 {
			return "", errNoLayouts
		}
		return fmt.Sprintf("%d templates", n), nil
	}}
}

// BackendCheck reports the health of the persistence backend named name.
func BackendCheck(name string, hc HealthChecker) Check {
	return Check{Name: "persistence", Run: func(ctx context.Context) (string, error) {
		return name, hc.HealthCheck(ctx)
	}}
}

const checkTimeout = 2 * time.Second

// HandleHealth serves the liveness endpoint.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeHealthJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version, Commit: Commit})
	}
}

// HandleReady serves the readiness endpoint. Checks run concurrently, each
// bounded by checkTimeout; any failure answers 503.
func HandleReady(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := make(map[string]CheckResult, len(checks))
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, c := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := runCheck(r.Context(), c)
				mu.Lock()
				results[c.Name] = res
				mu.Unlock()
			}()
		}
		wg.Wait()

		resp := ReadinessResponse{Status: "ready", Checks: results}
		status := http.StatusOK
		if len(checks) == 0 {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
		for _, res := range results {
			if res.Status != "ok" {
				resp.Status = "not_ready"
				status = http.StatusServiceUnavailable
				break
			}
		}
		writeHealthJSON(w, status, resp)
	}
}

func runCheck(parent context.Context, c Check) CheckResult {
	ctx, cancel := context.WithTimeout(parent, checkTimeout)
	defer cancel()

	start := time.Now()
	detail, err := c.Run(ctx)
	res := CheckResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds(), Detail: detail}
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
	}
	return res
}

func writeHealthJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
