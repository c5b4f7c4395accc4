package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/pitabwire/designer/internal/observability"
	"github.com/pitabwire/designer/model"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets every call through and counts backend failures.
	BreakerClosed BreakerState = iota
	// BreakerOpen fails calls immediately with UNAVAILABLE.
	BreakerOpen
	// BreakerHalfOpen lets trial calls through after the open timeout.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a backend after consecutive failures and tries it
// again once openTimeout has passed. Safe for concurrent use.
type Breaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	openedAt         time.Time
	now              func() time.Time
}

// NewBreaker returns a closed breaker. Non-positive arguments fall back to
// 5 failures, 2 trial successes and a 30s open timeout.
func NewBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 5
	}
	if successThreshold < 1 {
		successThreshold = 2
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state != BreakerOpen
}

// Record feeds the outcome of a call back into the breaker.
func (b *Breaker) Record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	case BreakerHalfOpen:
		if failed {
			b.trip()
			return
		}
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// advance moves an expired open breaker to half-open. Caller holds mu.
func (b *Breaker) advance() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		b.state = BreakerHalfOpen
		b.successes = 0
	}
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.successes = 0
}

// backendFailure reports whether err means the backend itself misbehaved.
// Caller mistakes and bad stored documents leave the breaker alone.
func backendFailure(err error) bool {
	if err == nil {
		return false
	}
	for _, code := range []string{model.ErrNotFound, model.ErrBadRequest, model.ErrConfigValidation, model.ErrConfigLoadFailed} {
		if model.HasCode(err, code) {
			return false
		}
	}
	return true
}

// Guarded wraps a Store with a Breaker.
type Guarded struct {
	next    Store
	breaker *Breaker
}

// Guard wraps next so that calls fail fast with UNAVAILABLE while b is open.
func Guard(next Store, b *Breaker) *Guarded {
	return &Guarded{next: next, breaker: b}
}

// Breaker returns the breaker guarding the store.
func (g *Guarded) Breaker() *Breaker { return g.breaker }

func (g *Guarded) call(fn func() error) error {
	if !g.breaker.Allow() {
		return model.NewUnavailableError("persistence backend unavailable")
	}
	err := fn()
	g.breaker.Record(backendFailure(err))
	return err
}

// Save implements Store.
func (g *Guarded) Save(ctx context.Context, key string, cfg *model.Configuration) error {
	return g.call(func() error { return g.next.Save(ctx, key, cfg) })
}

// Load implements Store.
func (g *Guarded) Load(ctx context.Context, key string) (*model.Configuration, error) {
	var cfg *model.Configuration
	err := g.call(func() error {
		var err error
		cfg, err = g.next.Load(ctx, key)
		return err
	})
	return cfg, err
}

// Delete implements Store.
func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.call(func() error { return g.next.Delete(ctx, key) })
}

// Keys implements Store.
func (g *Guarded) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := g.call(func() error {
		var err error
		keys, err = g.next.Keys(ctx)
		return err
	})
	return keys, err
}

// HealthCheck bypasses the breaker so readiness reflects the backend.
func (g *Guarded) HealthCheck(ctx context.Context) error {
	if hc, ok := g.next.(observability.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
