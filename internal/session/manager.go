// Package session hosts independent designer sessions. Each session owns
// exactly one store; the canvas and preview views subscribe to it and the
// grid controller writes through it. Idle sessions are evicted by a
// background sweeper.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/canvas"
	"github.com/pitabwire/designer/internal/definition"
	"github.com/pitabwire/designer/internal/grid"
	"github.com/pitabwire/designer/internal/persistence"
	"github.com/pitabwire/designer/internal/render"
	"github.com/pitabwire/designer/internal/store"
	"github.com/pitabwire/designer/model"
)

// Removal reasons reported to Metrics.
const (
	ReasonClosed   = "closed"
	ReasonIdle     = "idle"
	ReasonShutdown = "shutdown"
)

// Metrics receives session activity. *observability.Metrics satisfies it.
type Metrics interface {
	RecordMutation(op string, err error)
	RecordDrop(accepted bool)
	RecordRender(mode string, nodes int, failed bool)
	RecordSessionCreated()
	RecordSessionRemoved(reason string)
	RecordFormSubmission(valid bool)
}

type nopMetrics struct{}

func (nopMetrics) RecordMutation(string, error)   {}
func (nopMetrics) RecordDrop(bool)                {}
func (nopMetrics) RecordRender(string, int, bool) {}
func (nopMetrics) RecordSessionCreated()          {}
func (nopMetrics) RecordSessionRemoved(string)    {}
func (nopMetrics) RecordFormSubmission(bool)      {}

// Limits bounds the sessions a Manager hosts and sizes new ones.
type Limits struct {
	IdleTTL      time.Duration
	MaxSessions  int
	HistoryLimit int
	Grid         grid.Dimensions
	Cell         grid.CellSize
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		IdleTTL:      30 * time.Minute,
		MaxSessions:  1000,
		HistoryLimit: store.DefaultHistoryLimit,
		Grid:         grid.Dimensions{Rows: 12, Cols: 12},
		Cell:         grid.DefaultCellSize,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLimits replaces DefaultLimits.
func WithLimits(l Limits) Option {
	return func(m *Manager) { m.limits = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt Metrics) Option {
	return func(m *Manager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// WithRenderer shares a renderer between sessions.
func WithRenderer(r *render.Renderer) Option {
	return func(m *Manager) { m.renderer = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager creates, finds and evicts sessions.
type Manager struct {
	templates *definition.Registry
	persist   persistence.Store
	renderer  *render.Renderer
	metrics   Metrics
	logger    *zap.Logger
	limits    Limits
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager loading templates from templates and
// saving through persist.
func NewManager(templates *definition.Registry, persist persistence.Store, opts ...Option) *Manager {
	m := &Manager{
		templates: templates,
		persist:   persist,
		metrics:   nopMetrics{},
		logger:    zap.NewNop(),
		limits:    DefaultLimits(),
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.templates == nil {
		m.templates = definition.NewRegistry(nil)
	}
	if m.persist == nil {
		m.persist = persistence.NewMemoryStore()
	}
	if m.renderer == nil {
		m.renderer = render.NewRenderer(nil)
	}
	return m
}

// Create starts a session. A non-empty template names the layout it starts
// from; an unknown name fails with CONFIG_LOAD_FAILED and creates nothing.
func (m *Manager) Create(template string) (*Session, error) {
	var initial *model.Configuration
	if template != "" {
		def, ok := m.templates.Get(template)
		if !ok {
			return nil, model.NewConfigLoadError(template, fmt.Errorf("no layout named %q", template))
		}
		initial = def.Config
	}

	m.mu.Lock()
	if len(m.sessions) >= m.limits.MaxSessions {
		m.mu.Unlock()
		return nil, model.NewUnavailableError(fmt.Sprintf("session limit of %d reached", m.limits.MaxSessions))
	}
	s := m.newSession()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.metrics.RecordSessionCreated()
	if initial != nil {
		if err := s.loadAs(template, initial); err != nil {
			m.remove(s.ID, ReasonClosed)
			return nil, err
		}
	}
	m.logger.Info("session created", zap.String("session_id", s.ID), zap.String("template", template))
	return s, nil
}

func (m *Manager) newSession() *Session {
	id := uuid.NewString()
	logger := m.logger.With(zap.String("session_id", id))
	now := m.now()

	st := store.New(
		store.WithHistoryLimit(m.limits.HistoryLimit),
		store.WithLogger(logger),
		store.WithMutationHook(m.metrics.RecordMutation),
	)
	canvasView := render.NewView(m.renderer, model.RenderContext{Mode: model.ModeCanvas, ViewMode: model.ViewDesktop})
	preview := render.NewView(m.renderer, model.RenderContext{Mode: model.ModePreview, ViewMode: model.ViewDesktop})
	canvasView.Attach(st)
	preview.Attach(st)

	s := &Session{
		ID:         id,
		CreatedAt:  now,
		store:      st,
		canvasView: canvasView,
		preview:    preview,
		controller: canvas.NewController(st, "", m.limits.Grid,
			canvas.WithCellSize(m.limits.Cell),
			canvas.WithLogger(logger),
		),
		templates: m.templates,
		persist:   m.persist,
		metrics:   m.metrics,
		logger:    logger,
	}
	s.touch(now)
	return s
}

// Get returns the session with id and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, model.NewSessionNotFoundError(id)
	}
	s.touch(m.now())
	return s, nil
}

// Close ends the session with id.
func (m *Manager) Close(id string) error {
	if !m.remove(id, ReasonClosed) {
		return model.NewSessionNotFoundError(id)
	}
	return nil
}

func (m *Manager) remove(id, reason string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.close()
	m.metrics.RecordSessionRemoved(reason)
	m.logger.Info("session removed", zap.String("session_id", id), zap.String("reason", reason))
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the idle TTL and returns how
// many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.limits.IdleTTL)

	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range idle {
		if m.remove(id, ReasonIdle) {
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is cancelled, then
// closes the remaining sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

// CloseAll removes every session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.remove(id, ReasonShutdown)
	}
}

// Templates returns the named layouts available to Create and
// LoadTemplate.
func (m *Manager) Templates() []model.LayoutSummary {
	return m.templates.Summaries()
}
