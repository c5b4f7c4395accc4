package model

import "strings"

// Rendering modes.
const (
	ModeCanvas  = "canvas"
	ModePreview = "preview"
)

// View modes (viewport size classes).
const (
	ViewDesktop = "desktop"
	ViewTablet  = "tablet"
	ViewMobile  = "mobile"
)

// RenderContext distinguishes design canvas from preview and carries the
// arbitrary values display conditions are evaluated against. It is
// read-only to the dispatcher.
type RenderContext struct {
	Mode     string         `json:"mode,omitempty"`
	ViewMode string         `json:"viewMode,omitempty"`
	Values   map[string]any `json:"values,omitempty"`
}

// IsPreviewMode reports whether rendering targets the read-only preview.
func (rc RenderContext) IsPreviewMode() bool {
	return rc.Mode == ModePreview
}

// Lookup resolves a dotted path against the context. "mode" and "viewMode"
// address the built-in fields; every other path navigates Values.
func (rc RenderContext) Lookup(path string) (any, bool) {
	switch path {
	case "mode":
		return rc.Mode, rc.Mode != ""
	case "viewMode":
		return rc.ViewMode, rc.ViewMode != ""
	}
	if rc.Values == nil || path == "" {
		return nil, false
	}
	var current any = rc.Values
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// FieldOption is a label/value pair for radio and select inputs.
type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FormAction is a button attached to a form.
type FormAction struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// FormConfig is the flat form description consumed by the form renderer.
type FormConfig struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Fields      []FormField  `json:"fields"`
	Actions     []FormAction `json:"actions,omitempty"`
}
