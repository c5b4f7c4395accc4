package render

import (
	"github.com/pitabwire/designer/model"
)

// Event types emitted by type renderers.
const (
	EventSubmit   = "submit"
	EventNavigate = "navigate"
	EventClick    = "click"
	EventChange   = "change"
)

// Event is emitted upward by an external type renderer, e.g. a form submit
// carrying the form values.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Validate checks the event type is known.
func (e Event) Validate() error {
	switch e.Type {
	case EventSubmit, EventNavigate, EventClick, EventChange:
		return nil
	case "":
		return model.NewBadRequestError("event type is required")
	default:
		return model.NewBadRequestError("unknown event type " + e.Type)
	}
}

// Values returns the submitted form values. A submit event carries them
// either under "values" or as the data itself.
func (e Event) Values() map[string]any {
	if v, ok := e.Data["values"].(map[string]any); ok {
		return v
	}
	if e.Data == nil {
		return map[string]any{}
	}
	return e.Data
}

// Route returns the target route of a navigate event.
func (e Event) Route() string {
	if r, ok := e.Data["route"].(string); ok {
		return r
	}
	if item, ok := e.Data["item"].(map[string]any); ok {
		return model.Props(item).String("route", model.Props(item).String("href", ""))
	}
	return ""
}
