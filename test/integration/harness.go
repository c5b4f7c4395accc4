// Package integration provides a reusable test harness for end-to-end
// testing of the designer server. It starts the full HTTP stack over real
// layout files, with in-memory or Redis-backed persistence.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/config"
	"github.com/pitabwire/designer/internal/definition"
	"github.com/pitabwire/designer/internal/observability"
	"github.com/pitabwire/designer/internal/persistence"
	"github.com/pitabwire/designer/internal/session"
	"github.com/pitabwire/designer/internal/transport"
)

// TestHarness encapsulates a fully wired designer instance.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server

	// Internal components exposed for advanced test scenarios.
	Registry *definition.Registry
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Redis    *miniredis.Miniredis

	cfg *config.Config
}

// HarnessOption configures the test harness.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	layoutDirs     []string
	redis          bool
	hotReload      bool
	maxSessions    int
	maxBodyBytes   int64
	handlerTimeout time.Duration
}

// WithLayouts sets the layout directories to load.
func WithLayouts(dirs ...string) HarnessOption {
	return func(c *harnessConfig) {
		c.layoutDirs = dirs
	}
}

// WithRedis backs persistence with an in-process Redis server.
func WithRedis() HarnessOption {
	return func(c *harnessConfig) {
		c.redis = true
	}
}

// WithHotReload watches the layout directories for changes.
func WithHotReload() HarnessOption {
	return func(c *harnessConfig) {
		c.hotReload = true
	}
}

// WithMaxSessions caps the number of concurrent sessions.
func WithMaxSessions(n int) HarnessOption {
	return func(c *harnessConfig) {
		c.maxSessions = n
	}
}

// WithMaxBodyBytes sets the request body limit.
func WithMaxBodyBytes(n int64) HarnessOption {
	return func(c *harnessConfig) {
		c.maxBodyBytes = n
	}
}

// NewTestHarness creates and starts a full designer test instance. The
// server is automatically cleaned up when the test completes.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := &harnessConfig{
		handlerTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(hc)
	}
	if len(hc.layoutDirs) == 0 {
		hc.layoutDirs = []string{filepath.Join(testdataDir(), "layouts")}
	}

	h := &TestHarness{t: t}
	logger := zap.NewNop()

	// Step 1: Build config.
	h.cfg = config.Defaults()
	h.cfg.Server.HandlerTimeout = hc.handlerTimeout
	h.cfg.Server.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	if hc.maxBodyBytes > 0 {
		h.cfg.Server.MaxBodyBytes = hc.maxBodyBytes
	}
	if hc.maxSessions > 0 {
		h.cfg.Session.MaxSessions = hc.maxSessions
	}

	// Step 2: Metrics on a private registry.
	reg := prometheus.NewRegistry()
	h.Metrics = observability.InitMetrics(reg)
	h.Gatherer = reg

	// Step 3: Load layouts.
	loader := definition.NewLoader()
	defs, err := loader.LoadAll(hc.layoutDirs)
	if err != nil {
		t.Fatalf("load layouts: %v", err)
	}
	h.Registry = definition.NewRegistry(defs)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if hc.hotReload {
		w := definition.NewWatcher(loader, h.Registry, hc.layoutDirs, logger,
			definition.WithDebounce(20*time.Millisecond),
			definition.WithReloadHook(h.Metrics.RecordDefinitionReload),
		)
		if err := w.Start(ctx); err != nil {
			t.Fatalf("start watcher: %v", err)
		}
	}

	// Step 4: Persistence.
	var store persistence.Store = persistence.NewMemoryStore()
	backend := "memory"
	if hc.redis {
		h.Redis = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: h.Redis.Addr()})
		t.Cleanup(func() { client.Close() })
		bc := h.cfg.Persistence.Breaker
		store = persistence.Guard(persistence.NewRedisStore(client, h.cfg.Persistence.KeyPrefix, 0),
			persistence.NewBreaker(bc.FailureThreshold, bc.SuccessThreshold, bc.OpenTimeout))
		backend = "redis"
	}
	persist := persistence.Instrument(store, backend, h.Metrics, logger)

	// Step 5: Session manager.
	limits := session.DefaultLimits()
	limits.MaxSessions = h.cfg.Session.MaxSessions
	h.Sessions = session.NewManager(h.Registry, persist,
		session.WithLimits(limits),
		session.WithLogger(logger),
		session.WithMetrics(h.Metrics),
	)

	// Step 6: Router with the same wrapping the server uses.
	router := transport.NewRouter(transport.Dependencies{
		Config:   h.cfg,
		Sessions: h.Sessions,
		Logger:   logger,
		Readiness: []observability.Check{
			observability.LayoutsCheck(h.Registry.Len),
			observability.BackendCheck(backend, persist),
		},
	})
	handler := h.Metrics.MetricsMiddleware(observability.TracingMiddleware(router))

	// Step 7: Start test server.
	h.server = httptest.NewServer(handler)
	t.Cleanup(func() {
		h.server.Close()
		h.Sessions.CloseAll()
	})

	return h
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// NewSession creates a session from template and returns its API path.
func (h *TestHarness) NewSession(template string) string {
	h.t.Helper()
	resp := h.POST("/designer/sessions", map[string]string{"template": template})
	var st session.State
	h.AssertJSON(h.t, resp, http.StatusCreated, &st)
	return "/designer/sessions/" + st.ID
}

// --- HTTP client helpers ---

// GET performs a GET request.
func (h *TestHarness) GET(path string) *http.Response {
	h.t.Helper()
	return h.doRequest("GET", path, nil, nil)
}

// GETWithHeaders performs a GET request with additional headers.
func (h *TestHarness) GETWithHeaders(path string, headers map[string]string) *http.Response {
	h.t.Helper()
	return h.doRequest("GET", path, nil, headers)
}

// POST performs a POST request with a JSON body.
func (h *TestHarness) POST(path string, body any) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, nil)
}

// PUT performs a PUT request with a JSON body.
func (h *TestHarness) PUT(path string, body any) *http.Response {
	h.t.Helper()
	return h.doRequest("PUT", path, body, nil)
}

// PATCH performs a PATCH request with a JSON body.
func (h *TestHarness) PATCH(path string, body any) *http.Response {
	h.t.Helper()
	return h.doRequest("PATCH", path, body, nil)
}

// DELETE performs a DELETE request.
func (h *TestHarness) DELETE(path string) *http.Response {
	h.t.Helper()
	return h.doRequest("DELETE", path, nil, nil)
}

// doRequest sends body as JSON. A string body is sent verbatim.
func (h *TestHarness) doRequest(method, path string, body any, headers map[string]string) *http.Response {
	h.t.Helper()

	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, h.server.URL+path, bodyReader)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseJSON reads the response body and unmarshals it into the target.
func (h *TestHarness) ParseJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		h.t.Fatalf("unmarshal response body: %v\nbody: %s", err, string(data))
	}
}

// AssertStatus checks that the response has the expected status code.
func (h *TestHarness) AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Errorf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
}

// AssertJSON checks that the response has the expected status and parses the body.
func (h *TestHarness) AssertJSON(t *testing.T, resp *http.Response, expected int, target any) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
	h.ParseJSON(resp, target)
}

// AssertErrorCode checks the status and the error envelope code.
func (h *TestHarness) AssertErrorCode(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	h.AssertJSON(t, resp, status, &body)
	if body.Error.Code != code {
		t.Errorf("error code = %q, want %q", body.Error.Code, code)
	}
}

// --- Helpers ---

// testdataDir returns the absolute path to the testdata directory.
func testdataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata")
}

// FormatJSON converts a value to indented JSON for test output.
func FormatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
