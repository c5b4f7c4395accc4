package model

import "encoding/json"

// FormField is the flattened, renderer-facing projection of one form input.
// It is always derived from the component tree and never authoritative.
type FormField struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Label        string         `json:"label"`
	Placeholder  string         `json:"placeholder,omitempty"`
	Required     bool           `json:"required"`
	Disabled     bool           `json:"disabled"`
	Options      []FieldOption  `json:"options,omitempty"`
	DefaultValue any            `json:"defaultValue,omitempty"`
	HelpText     string         `json:"helpText,omitempty"`
	GridColumn   string         `json:"gridColumn,omitempty"`
	Validation   map[string]any `json:"validation,omitempty"`

	// Extra holds entry keys the fields above do not model.
	Extra map[string]any `json:"-"`

	// Raw is the authored props.fields entry the field was read from. When
	// set it is encoded unchanged in place of the typed view.
	Raw any `json:"-"`
}

// formFieldKeys are the keys FormField models directly.
var formFieldKeys = map[string]bool{
	"id": true, "type": true, "label": true, "placeholder": true,
	"required": true, "disabled": true, "options": true, "defaultValue": true,
	"helpText": true, "gridColumn": true, "validation": true,
}

type formFieldFields FormField

// MarshalJSON encodes Raw when set, otherwise the typed view plus Extra.
func (f FormField) MarshalJSON() ([]byte, error) {
	if f.Raw != nil {
		return json.Marshal(f.Raw)
	}
	data, err := json.Marshal(formFieldFields(f))
	if err != nil || len(f.Extra) == 0 {
		return data, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k, v := range f.Extra {
		if !formFieldKeys[k] {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads a field entry tolerantly: values of an unexpected
// type fall back to zero values instead of failing the decode.
func (f *FormField) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*f = FormFieldFromMap(m)
	return nil
}

// FormFieldFromMap builds the typed view of an authored field entry. Keys
// outside the typed view are kept in Extra.
func FormFieldFromMap(m map[string]any) FormField {
	p := Props(m)
	f := FormField{
		ID:          p.String("id", ""),
		Type:        p.String("type", ""),
		Label:       p.String("label", ""),
		Placeholder: p.String("placeholder", ""),
		Required:    p.Bool("required", false),
		Disabled:    p.Bool("disabled", false),
		Options:     ParseOptions(p.Slice("options")),
		HelpText:    p.String("helpText", ""),
		GridColumn:  p.String("gridColumn", ""),
		Validation:  p.Map("validation"),
	}
	if p.Has("defaultValue") {
		f.DefaultValue = m["defaultValue"]
	}
	for k, v := range m {
		if formFieldKeys[k] {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]any)
		}
		f.Extra[k] = v
	}
	return f
}

// ParseOptions accepts plain values or {label, value} objects.
func ParseOptions(raw []any) []FieldOption {
	if len(raw) == 0 {
		return nil
	}
	out := make([]FieldOption, 0, len(raw))
	for _, o := range raw {
		switch v := o.(type) {
		case map[string]any:
			p := Props(v)
			value := p.String("value", "")
			out = append(out, FieldOption{Label: p.String("label", value), Value: value})
		default:
			s := Stringify(v)
			out = append(out, FieldOption{Label: s, Value: s})
		}
	}
	return out
}
