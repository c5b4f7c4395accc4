// Package style resolves a component's property bag into a flat map of
// kebab-cased style declarations. Resolution runs the same four steps for
// every rendering context; only the last step looks at the mode.
package style

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pitabwire/designer/model"
)

// Declarations is a resolved style map keyed by kebab-cased property name.
type Declarations map[string]string

// Props read from component.props in step one. textColor is emitted as
// color.
var allowedProps = []struct {
	prop string
	key  string
}{
	{"width", "width"},
	{"height", "height"},
	{"margin", "margin"},
	{"padding", "padding"},
	{"backgroundColor", "background-color"},
	{"textColor", "color"},
	{"borderRadius", "border-radius"},
	{"boxShadow", "box-shadow"},
	{"border", "border"},
	{"display", "display"},
	{"flexDirection", "flex-direction"},
	{"justifyContent", "justify-content"},
	{"alignItems", "align-items"},
	{"gap", "gap"},
	{"gridTemplateColumns", "grid-template-columns"},
}

// NavigationTransition is the hint applied to navigation components on the
// design canvas.
const NavigationTransition = "all 0.2s ease-in-out"

// Keys that only the context step may set.
var contextKeys = map[string]bool{
	"position":   true,
	"top":        true,
	"z-index":    true,
	"transition": true,
}

// IsContextKey reports whether key is set by the rendering-context step.
func IsContextKey(key string) bool {
	return contextKeys[key]
}

// Resolve computes the style declarations of c. Precedence, lowest first:
// allow-listed props, explicit styles, computed grid placement, context
// overrides.
func Resolve(c *model.Component, rc model.RenderContext) Declarations {
	out := make(Declarations)
	if c == nil {
		return out
	}

	for _, a := range allowedProps {
		if v, ok := value(c.Props[a.prop]); ok {
			out[a.key] = v
		}
	}

	for k, raw := range c.Styles {
		if v, ok := value(raw); ok {
			out[Kebab(k)] = v
		}
	}

	if pos, ok := c.Position(); ok {
		out["grid-column"] = GridColumn(pos)
		out["grid-row"] = GridRow(pos)
	}

	applyContext(out, c, rc)
	return out
}

func applyContext(out Declarations, c *model.Component, rc model.RenderContext) {
	if c.Type != model.TypeNavigation {
		return
	}
	if rc.IsPreviewMode() {
		out["position"] = "sticky"
		out["top"] = "0"
		out["z-index"] = "1000"
		return
	}
	out["transition"] = NavigationTransition
}

// GridColumn returns the 1-based "start / end" column span of pos.
func GridColumn(pos model.GridPosition) string {
	return fmt.Sprintf("%d / %d", pos.Col+1, pos.Col+pos.Width+1)
}

// GridRow returns the 1-based "start / end" row span of pos.
func GridRow(pos model.GridPosition) string {
	return fmt.Sprintf("%d / %d", pos.Row+1, pos.Row+pos.Height+1)
}

// ResolveLayout computes the container styles of a root layout. A nil
// layout resolves as a column stack.
func ResolveLayout(l *model.LayoutDescriptor) Declarations {
	out := make(Declarations)
	if l == nil {
		l = &model.LayoutDescriptor{Type: model.LayoutStack}
	}

	switch l.Type {
	case model.LayoutGrid:
		out["display"] = "grid"
		if l.Columns > 0 {
			out["grid-template-columns"] = fmt.Sprintf("repeat(%d, 1fr)", l.Columns)
		}
		if l.Rows > 0 {
			out["grid-template-rows"] = fmt.Sprintf("repeat(%d, auto)", l.Rows)
		}
	case model.LayoutFlex:
		out["display"] = "flex"
		out["flex-direction"] = orDefault(l.Direction, "row")
		if l.Justify != "" {
			out["justify-content"] = l.Justify
		}
		if l.Align != "" {
			out["align-items"] = l.Align
		}
	default:
		out["display"] = "flex"
		out["flex-direction"] = orDefault(l.Direction, "column")
	}

	if gap, ok := gapValue(l.Gap); ok {
		out["gap"] = gap
	}
	return out
}

// Kebab converts a camelCase key to kebab-case. Keys already in kebab-case
// are returned unchanged.
func Kebab(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// value renders a declaration value, dropping nil and empty ones.
func value(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s := strings.TrimSpace(model.Stringify(v))
	return s, s != ""
}

// gapValue renders numeric gaps in pixels.
func gapValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if _, isString := v.(string); !isString {
		if _, ok := model.ToFloat(v); ok {
			return model.Stringify(v) + "px", true
		}
	}
	return value(v)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
