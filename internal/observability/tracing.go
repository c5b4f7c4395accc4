package observability

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitabwire/designer/internal/config"
)

const (
	tracerName  = "github.com/pitabwire/designer"
	serviceName = "designer"
)

// Span attribute keys.
var (
	AttrSessionID   = attribute.Key("designer.session_id")
	AttrComponentID = attribute.Key("designer.component_id")
	AttrOp          = attribute.Key("designer.op")
	AttrMode        = attribute.Key("designer.mode")
	AttrViewMode    = attribute.Key("designer.view_mode")
	AttrNodes       = attribute.Key("designer.nodes")
	AttrLayout      = attribute.Key("designer.layout")
	AttrBackend     = attribute.Key("designer.backend")
)

// InitTracing installs the global tracer provider described by cfg and
// returns its shutdown function. Disabled tracing installs nothing.
func InitTracing(ctx context.Context, cfg config.TracingConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp", "":
		var opts []otlptracegrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter %q (supported: otlp, stdout)", cfg.Exporter)
	}
}

// sampler honours the parent decision and samples root spans at rate.
// Rates outside (0, 1] fall back to 0.1 and 1.
func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		rate = 0.1
	case rate >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts an internal span named name.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartCommand starts the span of one store command (add, move, undo...)
// issued against a session. componentID may be empty for commands that
// do not target a component.
func StartCommand(ctx context.Context, sessionID, op, componentID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrSessionID.String(sessionID), AttrOp.String(op)}
	if componentID != "" {
		attrs = append(attrs, AttrComponentID.String(componentID))
	}
	return StartSpan(ctx, "designer.command "+op, attrs...)
}

// StartRender starts the span of one render of a session in mode.
func StartRender(ctx context.Context, sessionID, mode, viewMode string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrSessionID.String(sessionID), AttrMode.String(mode)}
	if viewMode != "" {
		attrs = append(attrs, AttrViewMode.String(viewMode))
	}
	return StartSpan(ctx, "designer.render "+mode, attrs...)
}

// EndRender records the rendered node count and, for a view in the error
// state, its message before ending span.
func EndRender(span trace.Span, nodes int, viewErr string) {
	span.SetAttributes(AttrNodes.Int(nodes))
	if viewErr != "" {
		span.SetStatus(codes.Error, viewErr)
	}
	span.End()
}

// EndSpanWithError ends span, marking it failed when err is non-nil.
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SpanIDs returns the hex trace and span ids of the span in ctx, or empty
// strings when ctx carries no valid span.
func SpanIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}

// TracingMiddleware starts a server span per request, continuing any W3C
// traceparent the caller sent. Once routed, the span is renamed to the chi
// route pattern and tagged with the session the request addressed.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, rctx := routed(r)
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer().Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
			),
		)
		defer span.End()

		propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))
		sw := &tracingStatusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		pattern := routePattern(r)
		span.SetName(r.Method + " " + pattern)
		span.SetAttributes(semconv.HTTPRoute(pattern))
		if id := rctx.URLParam("sessionId"); id != "" {
			span.SetAttributes(AttrSessionID.String(id))
		}
		if id := rctx.URLParam("componentId"); id != "" {
			span.SetAttributes(AttrComponentID.String(id))
		}
		span.SetAttributes(semconv.HTTPResponseStatusCode(sw.status))
		if sw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}
	})
}

type tracingStatusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *tracingStatusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *tracingStatusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
