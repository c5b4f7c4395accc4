package observability

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitabwire/designer/internal/config"
	"github.com/pitabwire/designer/model"
)

type loggerKey struct{}

// NewLogger builds the service logger: JSON to stdout at cfg.LogLevel, with
// every entry tagged service=designer. Unknown levels fall back to info.
//
// Levels:
//   - error: backend outages, panics, 5xx responses
//   - warn:  4xx responses, rejected layouts, failed reloads, evictions
//   - info:  requests, session lifecycle, layout reloads, saves
//   - debug: store commands, drops and resizes, form submissions
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	zc.InitialFields = map[string]any{"service": serviceName}
	return zc.Build()
}

// WithLogger stores logger in ctx for RequestLogger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// RequestLogger returns the logger stored in ctx (or fallback) tagged with
// the request's correlation, session and trace ids.
func RequestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	logger := fallback
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		logger = l
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rctx := model.RequestContextFrom(ctx)
	if rctx == nil {
		return logger
	}
	fields := []zap.Field{zap.String("correlation_id", rctx.CorrelationID)}
	if rctx.SessionID != "" {
		fields = append(fields, zap.String("session_id", rctx.SessionID))
	}
	if rctx.TraceID != "" {
		fields = append(fields, zap.String("trace_id", rctx.TraceID), zap.String("span_id", rctx.SpanID))
	}
	return logger.With(fields...)
}

const redacted = "[REDACTED]"

// secretNames are value names masked in every form submission.
var secretNames = []string{"password", "secret", "token", "api_key", "pin", "ssn", "credit_card"}

// RedactValues returns a copy of submitted form values that is safe to log.
// Values named like a secret, or listed in fields (password inputs of the
// form), are masked; names match case-insensitively. Nested objects and
// lists are walked.
func RedactValues(values map[string]any, fields []string) map[string]any {
	if values == nil {
		return nil
	}
	mask := make(map[string]bool, len(secretNames)+len(fields))
	for _, n := range secretNames {
		mask[n] = true
	}
	for _, f := range fields {
		mask[strings.ToLower(f)] = true
	}
	return redactMap(values, mask)
}

func redactMap(m map[string]any, mask map[string]bool) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if mask[strings.ToLower(k)] {
			out[k] = redacted
			continue
		}
		out[k] = redactValue(v, mask)
	}
	return out
}

func redactValue(v any, mask map[string]bool) any {
	switch t := v.(type) {
	case map[string]any:
		return redactMap(t, mask)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e, mask)
		}
		return out
	default:
		return v
	}
}
