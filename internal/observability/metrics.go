package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets  = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	storeDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	bodySizeBuckets      = []float64{100, 1024, 10240, 102400, 1048576}
	nodeCountBuckets     = []float64{1, 5, 10, 25, 50, 100, 250, 1000}
)

// Metrics holds all Prometheus metric instruments for the designer.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Editing metrics
	MutationsTotal *prometheus.CounterVec
	DropsTotal     *prometheus.CounterVec

	// Rendering metrics
	RendersTotal  *prometheus.CounterVec
	RenderedNodes *prometheus.HistogramVec

	// Session metrics
	SessionsActive       prometheus.Gauge
	SessionsCreatedTotal prometheus.Counter
	SessionsEvictedTotal *prometheus.CounterVec

	// Form metrics
	FormSubmissionsTotal *prometheus.CounterVec

	// Persistence metrics
	PersistenceOpsTotal *prometheus.CounterVec
	PersistenceDuration *prometheus.HistogramVec

	// System metrics
	DefinitionReloadTotal *prometheus.CounterVec
	DefinitionsLoaded     prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designer_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "designer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "designer_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "designer_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Editing
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designer_mutations_total",
			Help: "Total number of store commands by operation and outcome.",
		}, []string{"op", "status"}),
		DropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designer_drops_total",
			Help: "Total number of grid drops by result.",
		}, []string{"result"}),

		// Rendering
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designer_renders_total",
			Help: "Total number of configuration renders.",
		}, []string{"mode", "status"}),
		RenderedNodes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "designer_rendered_nodes",
			Help:    "Number of visible nodes per render.",
			Buckets: nodeCountBuckets,
		}, []string{"mode"}),

		// Sessions
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "designer_sessions_active",
			Help: "Number of live designer sessions.",
		}),
		SessionsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "designer_sessions_created_total",
			Help: "Total number of designer sessions created.",
		}),
		SessionsEvictedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designer_sessions_evicted_total",
			Help: "Total number of sessions removed, by reason.",
		}, []string{"reason"}),

		// Forms
		FormSubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designer_form_submissions_total",
			Help: "Total number of form submit events by validation result.",
		}, []string{"result"}),

		// Persistence
		PersistenceOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designer_persistence_operations_total",
			Help: "Total number of persistence operations.",
		}, []string{"backend", "op", "status"}),
		PersistenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "designer_persistence_duration_seconds",
			Help:    "Persistence operation duration in seconds.",
			Buckets: storeDurationBuckets,
		}, []string{"backend", "op"}),

		// System
		DefinitionReloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designer_definition_reload_total",
			Help: "Total layout definition reloads.",
		}, []string{"status"}),
		DefinitionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "designer_definitions_loaded",
			Help: "Number of loaded named layouts.",
		}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Editing
		m.MutationsTotal,
		m.DropsTotal,
		// Rendering
		m.RendersTotal,
		m.RenderedNodes,
		// Sessions
		m.SessionsActive,
		m.SessionsCreatedTotal,
		m.SessionsEvictedTotal,
		// Forms
		m.FormSubmissionsTotal,
		// Persistence
		m.PersistenceOpsTotal,
		m.PersistenceDuration,
		// System
		m.DefinitionReloadTotal,
		m.DefinitionsLoaded,
	)

	return m
}

// --- Recording helpers ---

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordMutation records the outcome of one store command. Its signature
// matches store.MutationHook.
func (m *Metrics) RecordMutation(op string, err error) {
	m.MutationsTotal.WithLabelValues(op, statusLabel(err)).Inc()
}

// RecordDrop records whether a grid drop was accepted.
func (m *Metrics) RecordDrop(accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.DropsTotal.WithLabelValues(result).Inc()
}

// RecordRender records a render of the given mode.
func (m *Metrics) RecordRender(mode string, nodes int, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	m.RendersTotal.WithLabelValues(mode, status).Inc()
	m.RenderedNodes.WithLabelValues(mode).Observe(float64(nodes))
}

// RecordSessionCreated records a new session.
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreatedTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionRemoved records a session leaving for reason (closed, idle).
func (m *Metrics) RecordSessionRemoved(reason string) {
	m.SessionsEvictedTotal.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()
}

// RecordFormSubmission records a submit event and whether it validated.
func (m *Metrics) RecordFormSubmission(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.FormSubmissionsTotal.WithLabelValues(result).Inc()
}

// RecordPersistence records a persistence operation.
func (m *Metrics) RecordPersistence(backend, op string, err error, duration time.Duration) {
	m.PersistenceOpsTotal.WithLabelValues(backend, op, statusLabel(err)).Inc()
	m.PersistenceDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordDefinitionReload records a definition reload. Its signature
// matches definition.ReloadFunc.
func (m *Metrics) RecordDefinitionReload(count int, err error) {
	m.DefinitionReloadTotal.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		m.DefinitionsLoaded.Set(float64(count))
	}
}

// SetDefinitionsLoaded sets the number of loaded named layouts.
func (m *Metrics) SetDefinitionsLoaded(count float64) {
	m.DefinitionsLoaded.Set(count)
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		r, _ = routed(r)
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pathPattern := routePattern(r)
		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, pathPattern, sw.status, duration, reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routed makes sure r carries a chi route context. The router fills in an
// existing context instead of creating its own, so middleware outside the
// router can read the matched pattern once next returns.
func routed(r *http.Request) (*http.Request, *chi.Context) {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return r, rctx
	}
	rctx := chi.NewRouteContext()
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx)), rctx
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.ReplaceAll(pattern, "/*/", "/")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
