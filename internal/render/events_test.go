package render

import (
	"testing"

	"github.com/pitabwire/designer/model"
)

func TestEvent_Validate(t *testing.T) {
	for _, typ := range []string{EventSubmit, EventNavigate, EventClick, EventChange} {
		if err := (Event{Type: typ}).Validate(); err != nil {
			t.Errorf("Validate(%q) error = %v", typ, err)
		}
	}
	for _, typ := range []string{"", "hover"} {
		if err := (Event{Type: typ}).Validate(); !model.HasCode(err, model.ErrBadRequest) {
			t.Errorf("Validate(%q) error = %v, want BAD_REQUEST", typ, err)
		}
	}
}

func TestEvent_Values(t *testing.T) {
	nested := Event{Type: EventSubmit, Data: map[string]any{"values": map[string]any{"email": "a@b.co"}}}
	if got := nested.Values()["email"]; got != "a@b.co" {
		t.Errorf("nested email = %v", got)
	}

	flat := Event{Type: EventSubmit, Data: map[string]any{"email": "c@d.co"}}
	if got := flat.Values()["email"]; got != "c@d.co" {
		t.Errorf("flat email = %v", got)
	}

	if v := (Event{Type: EventSubmit}).Values(); v == nil || len(v) != 0 {
		t.Errorf("empty values = %v, want empty map", v)
	}
}

func TestEvent_Route(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"route", map[string]any{"route": "/about"}, "/about"},
		{"item route", map[string]any{"item": map[string]any{"label": "Home", "route": "/"}}, "/"},
		{"item href", map[string]any{"item": map[string]any{"href": "/docs"}}, "/docs"},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Event{Type: EventNavigate, Data: tt.data}).Route(); got != tt.want {
				t.Errorf("Route() = %q, want %q", got, tt.want)
			}
		})
	}
}
