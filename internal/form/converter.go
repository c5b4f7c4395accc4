// Package form converts between a form component's children and the flat
// FormConfig consumed by form renderers. The flat view is always derived;
// edits to it are written back through the component it came from.
package form

import (
	"fmt"
	"strings"

	"github.com/pitabwire/designer/model"
)

// DefaultLabel is used when a child has neither a label nor content.
const DefaultLabel = "Field Label"

// Field types emitted for each recognized input component type.
var fieldTypes = map[model.ComponentType]string{
	model.TypeTextInput:     "text",
	model.TypeEmailInput:    "email",
	model.TypePasswordInput: "password",
	model.TypeNumberInput:   "number",
	model.TypeTextarea:      "textarea",
	model.TypeCheckbox:      "checkbox",
	model.TypeRadio:         "radio",
	model.TypeSelect:        "select",
	model.TypeDateInput:     "date",
	model.TypeFileInput:     "file",
	model.TypeText:          "label",
}

var componentTypes = func() map[string]model.ComponentType {
	out := make(map[string]model.ComponentType, len(fieldTypes))
	for ct, ft := range fieldTypes {
		out[ft] = ct
	}
	return out
}()

// IsInputType reports whether a child of this type becomes a form field.
// Any "*-input" type is accepted; those missing from the type table map to
// a plain text field.
func IsInputType(t model.ComponentType) bool {
	if _, ok := fieldTypes[t]; ok {
		return true
	}
	return strings.HasSuffix(t, "-input")
}

// FieldType maps a component type to its field type.
func FieldType(t model.ComponentType) string {
	if ft, ok := fieldTypes[t]; ok {
		return ft
	}
	return "text"
}

// ComponentType maps a field type back to the component type it came from.
func ComponentType(fieldType string) (model.ComponentType, bool) {
	ct, ok := componentTypes[fieldType]
	return ct, ok
}

// IsAction reports whether a child of this type becomes a form action.
func IsAction(t model.ComponentType) bool {
	return t == model.TypeSubmitButton || t == model.TypeResetButton
}

// HasExplicitFields reports whether the form carries an authored
// props.fields list, which takes precedence over its children.
func HasExplicitFields(form *model.Component) bool {
	return form != nil && len(form.Props.Slice("fields")) > 0
}

// ToFormConfig derives the flat form description of a form component.
// Authored props.fields entries pass through unchanged; their typed view is
// read tolerantly for validation.
func ToFormConfig(form *model.Component) (model.FormConfig, error) {
	if form == nil {
		return model.FormConfig{}, model.NewBadRequestError("form component is required")
	}
	fc := model.FormConfig{
		Title:       form.Props.String("title", ""),
		Description: form.Props.String("description", ""),
		Fields:      []model.FormField{},
	}

	if HasExplicitFields(form) {
		for _, entry := range form.Props.Slice("fields") {
			fc.Fields = append(fc.Fields, FromEntry(entry))
		}
	} else {
		for _, child := range form.Children {
			if child == nil || !IsInputType(child.Type) {
				continue
			}
			fc.Fields = append(fc.Fields, ToFormField(child))
		}
	}

	if actions := form.Props.Slice("actions"); len(actions) > 0 {
		for _, a := range actions {
			p := model.Props(entryMap(a))
			fc.Actions = append(fc.Actions, model.FormAction{
				ID:    p.String("id", ""),
				Type:  p.String("type", ""),
				Label: p.String("label", ""),
			})
		}
	} else {
		for _, child := range form.Children {
			if child != nil && IsAction(child.Type) {
				fc.Actions = append(fc.Actions, toAction(child))
			}
		}
	}
	return fc, nil
}

// FromEntry reads one authored props.fields entry. The entry itself is kept
// as the field's Raw value.
func FromEntry(entry any) model.FormField {
	var f model.FormField
	if m := entryMap(entry); m != nil {
		f = model.FormFieldFromMap(m)
	} else {
		s := model.Stringify(entry)
		f = model.FormField{ID: s, Type: "text", Label: s}
	}
	f.Raw = entry
	return f
}

func entryMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case model.Props:
		return m
	default:
		return nil
	}
}

// ToFormField projects one input component onto a FormField.
func ToFormField(c *model.Component) model.FormField {
	f := model.FormField{
		ID:          c.ID,
		Type:        FieldType(c.Type),
		Label:       c.Props.String("label", c.Props.String("content", DefaultLabel)),
		Placeholder: c.Props.String("placeholder", ""),
		Required:    c.Props.Bool("required", false),
		Disabled:    c.Props.Bool("disabled", false),
		Options:     model.ParseOptions(c.Props.Slice("options")),
		HelpText:    c.Props.String("helpText", ""),
		Validation:  c.Props.Map("validation"),
	}
	if c.Props.Has("defaultValue") {
		f.DefaultValue = c.Props["defaultValue"]
	}
	if pos, ok := c.Position(); ok {
		f.GridColumn = GridArea(pos)
	}
	return f
}

// GridArea returns the CSS grid-area shorthand
// "row-start / col-start / row-end / col-end" for pos, 1-based.
func GridArea(pos model.GridPosition) string {
	return fmt.Sprintf("%d / %d / %d / %d", pos.Row+1, pos.Col+1, pos.Row+pos.Height+1, pos.Col+pos.Width+1)
}

func toAction(c *model.Component) model.FormAction {
	typ, label := "submit", "Submit"
	if c.Type == model.TypeResetButton {
		typ, label = "reset", "Reset"
	}
	return model.FormAction{
		ID:    c.ID,
		Type:  typ,
		Label: c.Props.String("label", label),
	}
}
