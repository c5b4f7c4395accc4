package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type backend struct{ err error }

func (b backend) HealthCheck(context.Context) error { return b.err }

type hangingBackend struct{}

func (hangingBackend) HealthCheck(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func layouts(n int) Check {
	return LayoutsCheck(func() int { return n })
}

func ready(t *testing.T, ctx context.Context, checks ...Check) (int, ReadinessResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/designer/ready", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	HandleReady(checks...).ServeHTTP(rec, req)

	var resp ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode readiness: %v", err)
	}
	return rec.Code, resp
}

func TestHandleHealth(t *testing.T) {
	origVersion, origCommit := Version, Commit
	Version, Commit = "1.4.0", "9f1c2ab"
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	rec := httptest.NewRecorder()
	HandleHealth().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/designer/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if want := (HealthResponse{Status: "ok", Version: "1.4.0", Commit: "9f1c2ab"}); resp != want {
		t.Errorf("body = %+v, want %+v", resp, want)
	}
}

func TestHandleReady_layoutsAndBackend(t *testing.T) {
	code, resp := ready(t, context.Background(), layouts(3), BackendCheck("redis", backend{}))

	if code != http.StatusOK || resp.Status != "ready" {
		t.Fatalf("readiness = %d %s, want 200 ready", code, resp.Status)
	}
	if got := resp.Checks["layouts"]; got.Status != "ok" || got.Detail != "3 templates" {
		t.Errorf("layouts = %+v, want ok with 3 templates", got)
	}
	if got := resp.Checks["persistence"]; got.Status != "ok" || got.Detail != "redis" {
		t.Errorf("persistence = %+v, want ok on redis", got)
	}
}

func TestHandleReady_failures(t *testing.T) {
	tests := []struct {
		name      string
		checks    []Check
		wantCheck string
		wantError string
	}{
		{"no layouts", []Check{layouts(0), BackendCheck("memory", backend{})}, "layouts", "no layout templates loaded"},
		{"backend down", []Check{layouts(2), BackendCheck("postgres", backend{err: errors.New("connection refused")})}, "persistence", "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := ready(t, context.Background(), tt.checks...)

			if code != http.StatusServiceUnavailable || resp.Status != "not_ready" {
				t.Fatalf("readiness = %d %s, want 503 not_ready", code, resp.Status)
			}
			got := resp.Checks[tt.wantCheck]
			if got.Status != "error" || got.Error != tt.wantError {
				t.Errorf("%s = %+v, want error %q", tt.wantCheck, got, tt.wantError)
			}
			if len(resp.Checks) != 2 {
				t.Errorf("checks = %d, want 2", len(resp.Checks))
			}
		})
	}
}

func TestHandleReady_hangingBackendIsBounded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, resp := ready(t, ctx, layouts(1), BackendCheck("redis", hangingBackend{}))

	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if got := resp.Checks["persistence"].Error; got != context.Canceled.Error() {
		t.Errorf("persistence error = %q, want %q", got, context.Canceled.Error())
	}
}

func TestHandleReady_noChecks(t *testing.T) {
	code, resp := ready(t, context.Background())
	if code != http.StatusServiceUnavailable || resp.Status != "not_ready" {
		t.Errorf("readiness = %d %s, want 503 not_ready", code, resp.Status)
	}
}
