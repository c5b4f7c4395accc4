package render

import (
	"github.com/pitabwire/designer/internal/form"
	"github.com/pitabwire/designer/model"
)

// FormRenderer supplies the flat form description. Inputs are disabled on
// the design canvas.
type FormRenderer struct{}

// Type implements TypeRenderer.
func (FormRenderer) Type() model.ComponentType { return model.TypeForm }

// Props implements TypeRenderer.
func (FormRenderer) Props(c *model.Component, rc model.RenderContext) (map[string]any, error) {
	fc, err := form.ToFormConfig(c)
	if err != nil {
		return nil, err
	}
	p := passthrough(c)
	p["formConfig"] = fc
	p["model"] = form.BuildModel(fc)
	p["disabled"] = !rc.IsPreviewMode()
	return p, nil
}

// NavItem is one normalized navigation entry.
type NavItem struct {
	Label  string `json:"label"`
	Route  string `json:"route"`
	Icon   string `json:"icon,omitempty"`
	Active bool   `json:"active"`
}

// NavigationRenderer normalizes props.items and marks the entry whose route
// matches the context value "route". Links are only followed in preview.
type NavigationRenderer struct{}

// Type implements TypeRenderer.
func (NavigationRenderer) Type() model.ComponentType { return model.TypeNavigation }

// Props implements TypeRenderer.
func (NavigationRenderer) Props(c *model.Component, rc model.RenderContext) (map[string]any, error) {
	current, _ := rc.Lookup("route")
	currentRoute := model.Stringify(current)

	var items []NavItem
	for _, raw := range c.Props.Slice("items") {
		var item NavItem
		switch v := raw.(type) {
		case map[string]any:
			ip := model.Props(v)
			item = NavItem{
				Label: ip.String("label", ""),
				Route: ip.String("route", ip.String("href", "")),
				Icon:  ip.String("icon", ""),
			}
		default:
			item = NavItem{Label: model.Stringify(v)}
		}
		item.Active = item.Route != "" && item.Route == currentRoute
		items = append(items, item)
	}

	p := passthrough(c)
	p["items"] = items
	p["brand"] = c.Props.String("brand", c.Props.String("title", ""))
	p["interactive"] = rc.IsPreviewMode()
	return p, nil
}

// Widget is one normalized dashboard tile.
type Widget struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

// DefaultDashboardColumns is used when props.columns is absent.
const DefaultDashboardColumns = 3

// DashboardRenderer normalizes props.widgets. Charting is left to the
// external renderer.
type DashboardRenderer struct{}

// Type implements TypeRenderer.
func (DashboardRenderer) Type() model.ComponentType { return model.TypeDashboard }

// Props implements TypeRenderer.
func (DashboardRenderer) Props(c *model.Component, _ model.RenderContext) (map[string]any, error) {
	widgets := []Widget{}
	for _, raw := range c.Props.Slice("widgets") {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		wp := model.Props(m)
		widgets = append(widgets, Widget{
			ID:    wp.String("id", ""),
			Title: wp.String("title", ""),
			Type:  wp.String("type", "stat"),
			Value: wp["value"],
		})
	}

	p := passthrough(c)
	p["widgets"] = widgets
	p["columns"] = c.Props.Int("columns", DefaultDashboardColumns)
	return p, nil
}

// HeaderRenderer fills title and subtitle defaults.
type HeaderRenderer struct{}

// Type implements TypeRenderer.
func (HeaderRenderer) Type() model.ComponentType { return model.TypeHeader }

// Props implements TypeRenderer.
func (HeaderRenderer) Props(c *model.Component, _ model.RenderContext) (map[string]any, error) {
	p := passthrough(c)
	p["title"] = c.Props.String("title", c.Props.String("content", ""))
	p["subtitle"] = c.Props.String("subtitle", "")
	p["level"] = c.Props.Int("level", 1)
	return p, nil
}
