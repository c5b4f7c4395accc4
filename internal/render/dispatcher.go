// Package render turns a configuration into the per-component descriptions
// handed to external type renderers. The same Renderer serves the design
// canvas and the preview; the mode only reaches style resolution and the
// type renderers through the RenderContext.
package render

import (
	"github.com/pitabwire/designer/internal/style"
	"github.com/pitabwire/designer/model"
)

// Node is the resolved description of one visible component.
type Node struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Styles   style.Declarations `json:"styles"`
	Props    map[string]any     `json:"props"`
	Children []*Node            `json:"children,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Output is the rendered form of a whole configuration.
type Output struct {
	Mode     string             `json:"mode"`
	ViewMode string             `json:"viewMode,omitempty"`
	Title    string             `json:"title"`
	Layout   style.Declarations `json:"layout"`
	Nodes    []*Node            `json:"nodes"`
	Error    string             `json:"error,omitempty"`
}

// Renderer dispatches components to their TypeRenderer.
type Renderer struct {
	registry *Registry
}

// NewRenderer creates a Renderer. A nil registry means DefaultRegistry().
func NewRenderer(registry *Registry) *Renderer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Renderer{registry: registry}
}

// Render resolves every visible component of cfg. cfg is not modified.
func (r *Renderer) Render(cfg *model.Configuration, rc model.RenderContext) Output {
	out := Output{
		Mode:     rc.Mode,
		ViewMode: rc.ViewMode,
		Nodes:    []*Node{},
	}
	if cfg == nil {
		cfg = model.NewConfiguration()
	}
	out.Title = cfg.Title()
	out.Layout = style.ResolveLayout(cfg.Layout)
	out.Nodes = r.nodes(cfg.Components, rc)
	return out
}

// RenderComponent resolves a single component and its visible children. It
// returns nil when the component's conditions do not hold.
func (r *Renderer) RenderComponent(c *model.Component, rc model.RenderContext) *Node {
	if c == nil || !EvaluateConditions(c.Conditions, rc) {
		return nil
	}

	n := &Node{
		ID:     c.ID,
		Type:   c.Type,
		Styles: style.Resolve(c, rc),
	}
	props, err := r.registry.Props(c, rc)
	if err != nil {
		n.Error = err.Error()
		props = passthrough(c)
	}
	n.Props = props
	n.Children = r.nodes(c.Children, rc)
	return n
}

func (r *Renderer) nodes(components []*model.Component, rc model.RenderContext) []*Node {
	nodes := make([]*Node, 0, len(components))
	for _, c := range components {
		if n := r.RenderComponent(c, rc); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Count returns the number of nodes in the output, children included.
func (o Output) Count() int {
	return count(o.Nodes)
}

func count(nodes []*Node) int {
	n := len(nodes)
	for _, node := range nodes {
		n += count(node.Children)
	}
	return n
}
