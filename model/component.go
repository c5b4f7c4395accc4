package model

// ComponentType names the kind of a component node.
type ComponentType = string

// Recognized component types.
const (
	TypeContainer     ComponentType = "container"
	TypeGrid          ComponentType = "grid"
	TypeHeader        ComponentType = "header"
	TypeNavigation    ComponentType = "navigation"
	TypeText          ComponentType = "text"
	TypeCard          ComponentType = "card"
	TypeImage         ComponentType = "image"
	TypeForm          ComponentType = "form"
	TypeButton        ComponentType = "button"
	TypeDashboard     ComponentType = "dashboard"
	TypeChart         ComponentType = "chart"
	TypeModal         ComponentType = "modal"
	TypeTabs          ComponentType = "tabs"
	TypeAccordion     ComponentType = "accordion"
	TypeTable         ComponentType = "table"
	TypeTextInput     ComponentType = "text-input"
	TypeEmailInput    ComponentType = "email-input"
	TypePasswordInput ComponentType = "password-input"
	TypeNumberInput   ComponentType = "number-input"
	TypeTextarea      ComponentType = "textarea"
	TypeCheckbox      ComponentType = "checkbox"
	TypeRadio         ComponentType = "radio"
	TypeSelect        ComponentType = "select"
	TypeDateInput     ComponentType = "date-input"
	TypeFileInput     ComponentType = "file-input"
	TypeSubmitButton  ComponentType = "submit-button"
	TypeResetButton   ComponentType = "reset-button"
)

// Component is one node of the UI configuration tree.
type Component struct {
	ID           string         `json:"id"                     yaml:"id"`
	Type         ComponentType  `json:"type"                   yaml:"type"`
	Props        Props          `json:"props"                  yaml:"props"`
	Children     []*Component   `json:"children,omitempty"     yaml:"children,omitempty"`
	Conditions   []Condition    `json:"conditions,omitempty"   yaml:"conditions,omitempty"`
	GridPosition *GridPosition  `json:"gridPosition,omitempty" yaml:"gridPosition,omitempty"`
	Styles       map[string]any `json:"styles,omitempty"       yaml:"styles,omitempty"`
}

// GridPosition is the rectangle a component occupies on a cell grid.
type GridPosition struct {
	Row    int `json:"row"    yaml:"row"`
	Col    int `json:"col"    yaml:"col"`
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Covers reports whether the cell (row, col) lies inside the rectangle.
func (p GridPosition) Covers(row, col int) bool {
	return p.Row <= row && row < p.Row+p.Height &&
		p.Col <= col && col < p.Col+p.Width
}

// Condition operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
)

// Condition is a display predicate evaluated against the rendering context.
type Condition struct {
	Field    string `json:"field"    yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value"    yaml:"value"`
}

// Position returns the component's grid placement. A top-level gridPosition
// takes precedence over props.gridPosition.
func (c *Component) Position() (GridPosition, bool) {
	if c == nil {
		return GridPosition{}, false
	}
	if c.GridPosition != nil {
		return *c.GridPosition, true
	}
	return c.Props.GridPosition()
}

// SetPosition writes the placement back where the component keeps it:
// under props when props already carries one, otherwise at the top level.
func (c *Component) SetPosition(pos GridPosition) {
	if c.GridPosition == nil {
		if _, ok := c.Props.GridPosition(); ok {
			c.Props["gridPosition"] = map[string]any{
				"row":    pos.Row,
				"col":    pos.Col,
				"width":  pos.Width,
				"height": pos.Height,
			}
			return
		}
	}
	p := pos
	c.GridPosition = &p
}

// Clone returns a deep copy of the component and all of its descendants.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	out := &Component{
		ID:     c.ID,
		Type:   c.Type,
		Props:  c.Props.Clone(),
		Styles: cloneMap(c.Styles),
	}
	if c.GridPosition != nil {
		p := *c.GridPosition
		out.GridPosition = &p
	}
	if c.Conditions != nil {
		out.Conditions = make([]Condition, len(c.Conditions))
		for i, cond := range c.Conditions {
			out.Conditions[i] = Condition{
				Field:    cond.Field,
				Operator: cond.Operator,
				Value:    cloneValue(cond.Value),
			}
		}
	}
	if c.Children != nil {
		out.Children = make([]*Component, len(c.Children))
		for i, child := range c.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// GridCell is one cell of the designer grid. It is regenerated whenever the
// grid dimensions change and is never persisted.
type GridCell struct {
	Row        int  `json:"row"`
	Col        int  `json:"col"`
	IsDragOver bool `json:"isDragOver"`
}
