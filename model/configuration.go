package model

// Configuration types.
const (
	ConfigTypePage   = "page"
	ConfigTypeLayout = "layout"
)

// Layout types.
const (
	LayoutGrid  = "grid"
	LayoutFlex  = "flex"
	LayoutStack = "stack"
)

// Configuration is the root of a designed page: an ordered list of root
// components plus optional layout and metadata. It round-trips through JSON
// without loss; components reference each other by id only.
type Configuration struct {
	Type       string            `json:"type"               yaml:"type"`
	Components []*Component      `json:"components"         yaml:"components"`
	Layout     *LayoutDescriptor `json:"layout,omitempty"   yaml:"layout,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// LayoutDescriptor describes how the root container arranges its children.
type LayoutDescriptor struct {
	Type      string `json:"type"                yaml:"type"`
	Columns   int    `json:"columns,omitempty"   yaml:"columns,omitempty"`
	Rows      int    `json:"rows,omitempty"      yaml:"rows,omitempty"`
	Gap       any    `json:"gap,omitempty"       yaml:"gap,omitempty"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	Justify   string `json:"justify,omitempty"   yaml:"justify,omitempty"`
	Align     string `json:"align,omitempty"     yaml:"align,omitempty"`
}

// DefaultTitle is the metadata title applied when none is given.
const DefaultTitle = "Dynamic UI"

// NewConfiguration returns an empty page configuration with defaults applied.
func NewConfiguration() *Configuration {
	return &Configuration{
		Type:       ConfigTypePage,
		Components: []*Component{},
		Layout:     &LayoutDescriptor{Type: LayoutStack, Direction: "column"},
		Metadata:   map[string]any{"title": DefaultTitle},
	}
}

// Title returns metadata.title, or the empty string.
func (c *Configuration) Title() string {
	if c == nil || c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata["title"].(string)
	return s
}

// Clone returns a deep, independent copy of the configuration.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := &Configuration{
		Type:     c.Type,
		Metadata: cloneMap(c.Metadata),
	}
	if c.Components != nil {
		out.Components = make([]*Component, len(c.Components))
		for i, comp := range c.Components {
			out.Components[i] = comp.Clone()
		}
	}
	if c.Layout != nil {
		l := *c.Layout
		l.Gap = cloneValue(c.Layout.Gap)
		out.Layout = &l
	}
	return out
}
