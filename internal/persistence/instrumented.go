package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/observability"
	"github.com/pitabwire/designer/model"
)

// Recorder receives the outcome of each persistence operation.
type Recorder interface {
	RecordPersistence(backend, op string, err error, duration time.Duration)
}

// Instrumented wraps a Store with spans, metrics and logs.
type Instrumented struct {
	next     Store
	backend  string
	recorder Recorder
	logger   *zap.Logger
}

// Instrument wraps next. A nil recorder disables metrics.
func Instrument(next Store, backend string, recorder Recorder, logger *zap.Logger) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{next: next, backend: backend, recorder: recorder, logger: logger}
}

// Backend returns the wrapped backend name.
func (s *Instrumented) Backend() string { return s.backend }

func (s *Instrumented) observe(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "persistence."+op,
		observability.AttrBackend.String(s.backend),
		observability.AttrLayout.String(key),
	)
	start := time.Now()
	err := fn(ctx)
	observability.EndSpanWithError(span, err)

	if s.recorder != nil {
		s.recorder.RecordPersistence(s.backend, op, err, time.Since(start))
	}
	if err != nil && !model.HasCode(err, model.ErrNotFound) && !model.HasCode(err, model.ErrBadRequest) {
		s.logger.Error("persistence operation failed",
			zap.String("backend", s.backend),
			zap.String("op", op),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return err
}

// Save implements Store.
func (s *Instrumented) Save(ctx context.Context, key string, cfg *model.Configuration) error {
	return s.observe(ctx, "save", key, func(ctx context.Context) error {
		return s.next.Save(ctx, key, cfg)
	})
}

// Load implements Store.
func (s *Instrumented) Load(ctx context.Context, key string) (*model.Configuration, error) {
	var cfg *model.Configuration
	err := s.observe(ctx, "load", key, func(ctx context.Context) error {
		var err error
		cfg, err = s.next.Load(ctx, key)
		return err
	})
	return cfg, err
}

// Delete implements Store.
func (s *Instrumented) Delete(ctx context.Context, key string) error {
	return s.observe(ctx, "delete", key, func(ctx context.Context) error {
		return s.next.Delete(ctx, key)
	})
}

// Keys implements Store.
func (s *Instrumented) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.observe(ctx, "keys", "", func(ctx context.Context) error {
		var err error
		keys, err = s.next.Keys(ctx)
		return err
	})
	return keys, err
}

// HealthCheck delegates to the wrapped store when it can check itself.
func (s *Instrumented) HealthCheck(ctx context.Context) error {
	if hc, ok := s.next.(observability.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
