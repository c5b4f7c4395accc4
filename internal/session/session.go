package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/designer/internal/canvas"
	"github.com/pitabwire/designer/internal/definition"
	"github.com/pitabwire/designer/internal/form"
	"github.com/pitabwire/designer/internal/grid"
	"github.com/pitabwire/designer/internal/observability"
	"github.com/pitabwire/designer/internal/persistence"
	"github.com/pitabwire/designer/internal/render"
	"github.com/pitabwire/designer/internal/store"
	"github.com/pitabwire/designer/model"
)

// Session is one designer: a Store, the canvas and preview views that
// follow it, and the grid controller that edits it. Calls on a session are
// serialized.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	mu       sync.Mutex
	lastUsed atomic.Int64

	store      *store.Store
	canvasView *render.View
	preview    *render.View
	controller *canvas.Controller

	templates *definition.Registry
	persist   persistence.Store
	metrics   Metrics
	logger    *zap.Logger

	template string
	values   map[string]any
}

// State is the externally visible summary of a session.
type State struct {
	ID       string `json:"id"`
	Template string `json:"template,omitempty"`
	Selected string `json:"selected,omitempty"`
	Unsaved  bool   `json:"unsaved"`
	CanUndo  bool   `json:"canUndo"`
	CanRedo  bool   `json:"canRedo"`
	Error    string `json:"error,omitempty"`
}

// EventResult is the outcome of dispatching a component event.
type EventResult struct {
	Type   string             `json:"type"`
	Valid  bool               `json:"valid"`
	Errors []model.FieldError `json:"errors,omitempty"`
	Route  string             `json:"route,omitempty"`
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// LastUsed returns the time of the last call on the session.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// State returns the session summary.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	ch := s.store.State()
	return State{
		ID:       s.ID,
		Template: s.template,
		Selected: ch.Selected,
		Unsaved:  ch.Unsaved,
		CanUndo:  ch.CanUndo,
		CanRedo:  ch.CanRedo,
		Error:    s.canvasView.Err(),
	}
}

// Config returns a copy of the live configuration.
func (s *Session) Config() *model.Configuration {
	return s.store.Config()
}

// Edit runs the store command op against the session's store while
// holding the session lock. componentID names the component the command
// targets, if any, and tags the command's span.
func (s *Session) Edit(ctx context.Context, op, componentID string, fn func(st *store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, span := observability.StartCommand(ctx, s.ID, op, componentID)
	err := fn(s.store)
	observability.EndSpanWithError(span, err)
	return err
}

// Load replaces the configuration. A rejected configuration puts both
// views in the error state and leaves the previous configuration active.
func (s *Session) Load(cfg *model.Configuration) error {
	return s.loadAs("", cfg)
}

// LoadJSON parses a configuration document and loads it. Documents that
// are not JSON are rejected as BAD_REQUEST; structural failures fail the
// views like Load.
func (s *Session) LoadJSON(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := definition.Parse(data)
	if err != nil {
		var ee *model.ErrorEnvelope
		if !errors.As(err, &ee) {
			return model.NewBadRequestError(fmt.Sprintf("invalid configuration document: %v", err))
		}
		s.fail("", err)
		return err
	}
	return s.loadLocked("", cfg)
}

func (s *Session) loadAs(name string, cfg *model.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(name, cfg)
}

func (s *Session) loadLocked(name string, cfg *model.Configuration) error {
	if err := s.store.Load(cfg); err != nil {
		s.fail(name, err)
		return err
	}
	s.template = name
	return nil
}

func (s *Session) fail(name string, err error) {
	s.canvasView.Fail(err)
	s.preview.Fail(err)
	s.logger.Warn("configuration load failed", zap.String("layout", name), zap.Error(err))
}

// LoadTemplate loads the named layout from the definitions registry.
func (s *Session) LoadTemplate(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.templates.Get(name)
	if !ok {
		err := model.NewConfigLoadError(name, fmt.Errorf("no layout named %q", name))
		s.fail(name, err)
		return err
	}
	return s.loadLocked(name, def.Config)
}

// Render renders the configuration in mode (canvas or preview). A non-nil
// values map replaces the condition values of both views.
func (s *Session) Render(ctx context.Context, mode, viewMode string, values map[string]any) (render.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var view *render.View
	switch mode {
	case model.ModeCanvas, "":
		view, mode = s.canvasView, model.ModeCanvas
	case model.ModePreview:
		view = s.preview
	default:
		return render.Output{}, model.NewBadRequestError(fmt.Sprintf("unknown render mode %q", mode))
	}

	if values != nil {
		s.values = maps.Clone(values)
	}
	_, span := observability.StartRender(ctx, s.ID, mode, viewMode)
	view.SetContext(viewMode, maps.Clone(s.values))
	out := view.Output()
	observability.EndRender(span, out.Count(), out.Error)
	s.metrics.RecordRender(out.Mode, out.Count(), out.Error != "")
	return out, nil
}

// Drop drags src onto (row, col) of the root grid in one gesture.
func (s *Session) Drop(src canvas.DragSource, row, col int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.controller.StartDrag(src); err != nil {
		return false, err
	}
	s.controller.DragOver(row, col)
	ok, err := s.controller.Drop(row, col)
	s.metrics.RecordDrop(ok)
	return ok, err
}

// Resize resizes a component by a pixel delta on the given handle.
func (s *Session) Resize(id string, dir grid.Direction, dx, dy float64) (model.GridPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Resize(id, dir, dx, dy)
}

// Grid returns the canvas grid.
func (s *Session) Grid() canvas.GridView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Grid()
}

// SetGrid changes the grid dimensions and returns the number of components
// clamped back inside.
func (s *Session) SetGrid(rows, cols int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.SetGridDimensions(rows, cols)
}

func (s *Session) form(id string) (*model.Component, error) {
	c, err := s.store.Component(id)
	if err != nil {
		return nil, err
	}
	if c.Type != model.TypeForm {
		return nil, model.NewBadRequestError(fmt.Sprintf("component %q is a %s, not a form", id, c.Type))
	}
	return c, nil
}

// FormFields returns the field list of form component id.
func (s *Session) FormFields(id string) (model.FormConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.form(id)
	if err != nil {
		return model.FormConfig{}, err
	}
	return form.ToFormConfig(c)
}

// UpdateFormField writes an edited field back into form id.
func (s *Session) UpdateFormField(id string, field model.FormField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.form(id)
	if err != nil {
		return err
	}
	return form.ApplyField(s.store, c, field)
}

// Dispatch routes an event emitted by component id. Submit events are
// validated against the form's fields; navigate events update the route
// both views resolve navigation state against.
func (s *Session) Dispatch(id string, ev render.Event) (EventResult, error) {
	if err := ev.Validate(); err != nil {
		return EventResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Component(id)
	if err != nil {
		return EventResult{}, err
	}
	res := EventResult{Type: ev.Type, Valid: true}

	switch ev.Type {
	case render.EventSubmit:
		if c.Type != model.TypeForm {
			return EventResult{}, model.NewBadRequestError(fmt.Sprintf("component %q cannot be submitted", id))
		}
		fc, err := form.ToFormConfig(c)
		if err != nil {
			return EventResult{}, err
		}
		values := ev.Values()
		res.Errors = form.ValidateValues(fc, values)
		res.Valid = len(res.Errors) == 0
		s.metrics.RecordFormSubmission(res.Valid)
		s.logger.Debug("form submitted",
			zap.String("component_id", id),
			zap.Bool("valid", res.Valid),
			zap.Int("errors", len(res.Errors)),
			zap.Any("values", observability.RedactValues(values, secretFields(fc))),
		)
	case render.EventNavigate:
		res.Route = ev.Route()
		if res.Route == "" {
			return EventResult{}, model.NewBadRequestError("navigate event requires a route")
		}
		if s.values == nil {
			s.values = map[string]any{}
		}
		s.values["route"] = res.Route
		s.logger.Info("navigation", zap.String("component_id", id), zap.String("route", res.Route))
	default:
		s.logger.Debug("component event", zap.String("component_id", id), zap.String("type", ev.Type))
	}
	return res, nil
}

// Save persists the configuration under key and clears the unsaved flag.
func (s *Session) Save(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := observability.StartSpan(ctx, "session.save",
		observability.AttrSessionID.String(s.ID),
		observability.AttrLayout.String(key),
	)
	err := s.persist.Save(ctx, key, s.store.Config())
	observability.EndSpanWithError(span, err)
	if err != nil {
		return err
	}
	s.store.MarkSaved()
	s.logger.Info("configuration saved", zap.String("key", key))
	return nil
}

// Restore loads the configuration saved under key. A stored value that no
// longer validates puts the views in the error state.
func (s *Session) Restore(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := observability.StartSpan(ctx, "session.restore",
		observability.AttrSessionID.String(s.ID),
		observability.AttrLayout.String(key),
	)
	cfg, err := s.persist.Load(ctx, key)
	if err == nil {
		err = s.loadLocked(key, cfg)
	} else if model.HasCode(err, model.ErrConfigLoadFailed) {
		s.fail(key, err)
	}
	observability.EndSpanWithError(span, err)
	return err
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Close()
	s.canvasView.Detach()
	s.preview.Detach()
}

// secretFields lists the password inputs of a form.
func secretFields(fc model.FormConfig) []string {
	var ids []string
	for _, f := range fc.Fields {
		if f.Type == "password" {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
