package render

import (
	"github.com/pitabwire/designer/model"
)

// TypeRenderer resolves the props handed to the external renderer of one
// component type. It may consult rc.IsPreviewMode(); the dispatcher never
// does.
type TypeRenderer interface {
	Type() model.ComponentType
	Props(c *model.Component, rc model.RenderContext) (map[string]any, error)
}

// Registry holds the TypeRenderer of each component type. Types without a
// registered renderer get a copy of their props.
type Registry struct {
	renderers map[model.ComponentType]TypeRenderer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[model.ComponentType]TypeRenderer)}
}

// DefaultRegistry returns a Registry with the form, navigation, dashboard
// and header renderers installed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FormRenderer{})
	r.Register(NavigationRenderer{})
	r.Register(DashboardRenderer{})
	r.Register(HeaderRenderer{})
	return r
}

// Register adds or replaces the renderer for its type.
func (r *Registry) Register(tr TypeRenderer) {
	r.renderers[tr.Type()] = tr
}

// Lookup returns the renderer registered for t.
func (r *Registry) Lookup(t model.ComponentType) (TypeRenderer, bool) {
	tr, ok := r.renderers[t]
	return tr, ok
}

// Props resolves c's props through its renderer, or copies them.
func (r *Registry) Props(c *model.Component, rc model.RenderContext) (map[string]any, error) {
	if tr, ok := r.renderers[c.Type]; ok {
		return tr.Props(c, rc)
	}
	return passthrough(c), nil
}

func passthrough(c *model.Component) map[string]any {
	p := c.Props.Clone()
	if p == nil {
		p = model.Props{}
	}
	return p
}
