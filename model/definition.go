package model

// LayoutDefinition is a named, validated configuration loaded from a
// definitions directory. Named layouts back the "load a template" command.
type LayoutDefinition struct {
	Name   string         `json:"name"`
	Config *Configuration `json:"config"`

	// Checksum is the SHA-256 of the source bytes, computed at load time.
	Checksum string `json:"checksum"`
	// SourceFile records the originating file path.
	SourceFile string `json:"-"`
}

// Title returns the layout's metadata title, falling back to its name.
func (d LayoutDefinition) Title() string {
	if t := d.Config.Title(); t != "" {
		return t
	}
	return d.Name
}

// LayoutSummary is the listing view of a named layout.
type LayoutSummary struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Components int    `json:"components"`
	Checksum   string `json:"checksum"`
}

// Summary returns the listing view of the definition.
func (d LayoutDefinition) Summary() LayoutSummary {
	n := 0
	if d.Config != nil {
		n = len(d.Config.IDs())
	}
	return LayoutSummary{
		Name:       d.Name,
		Title:      d.Title(),
		Components: n,
		Checksum:   d.Checksum,
	}
}
