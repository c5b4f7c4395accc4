package render

import (
	"sync"

	"github.com/pitabwire/designer/internal/store"
	"github.com/pitabwire/designer/model"
)

// Source publishes configuration changes. *store.Store satisfies it.
type Source interface {
	Subscribe(fn store.Listener) (unsubscribe func())
}

// View keeps the latest configuration seen from a Source and renders it in
// one fixed context. A failed load puts the view in an error state that the
// next configuration clears.
type View struct {
	renderer *Renderer

	mu     sync.RWMutex
	rc     model.RenderContext
	config *model.Configuration
	err    string

	unsubscribe func()
}

// NewView creates a View rendering in rc.
func NewView(renderer *Renderer, rc model.RenderContext) *View {
	if renderer == nil {
		renderer = NewRenderer(nil)
	}
	return &View{
		renderer: renderer,
		rc:       rc,
		config:   model.NewConfiguration(),
	}
}

// Attach subscribes the view to src. A previous subscription is released.
func (v *View) Attach(src Source) {
	v.Detach()
	unsub := src.Subscribe(v.Handle)
	v.mu.Lock()
	v.unsubscribe = unsub
	v.mu.Unlock()
}

// Detach releases the subscription, if any.
func (v *View) Detach() {
	v.mu.Lock()
	unsub := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Handle records a published change. Only a change that alters the
// configuration clears the error state.
func (v *View) Handle(change store.Change) {
	if change.Config == nil {
		return
	}
	v.mu.Lock()
	v.config = change.Config
	if change.Alters() {
		v.err = ""
	}
	v.mu.Unlock()
}

// Fail enters the error state. The last good configuration is kept.
func (v *View) Fail(err error) {
	if err == nil {
		return
	}
	v.mu.Lock()
	v.err = err.Error()
	v.mu.Unlock()
}

// Err returns the current error message, empty when healthy.
func (v *View) Err() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// Context returns the rendering context.
func (v *View) Context() model.RenderContext {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rc
}

// SetContext replaces the condition values and view mode. The mode of a
// view never changes.
func (v *View) SetContext(viewMode string, values map[string]any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if viewMode != "" {
		v.rc.ViewMode = viewMode
	}
	v.rc.Values = values
}

// Output renders the current configuration. In the error state the output
// carries the message and no nodes.
func (v *View) Output() Output {
	v.mu.RLock()
	cfg, rc, errMsg := v.config, v.rc, v.err
	v.mu.RUnlock()

	if errMsg != "" {
		return Output{
			Mode:     rc.Mode,
			ViewMode: rc.ViewMode,
			Title:    cfg.Title(),
			Nodes:    []*Node{},
			Error:    errMsg,
		}
	}
	return v.renderer.Render(cfg, rc)
}
