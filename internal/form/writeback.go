package form

import (
	"fmt"
	"reflect"

	"github.com/pitabwire/designer/model"
)

// PropertyUpdater is the store command used for write-back.
type PropertyUpdater interface {
	UpdateComponentProperty(id, path string, value any) error
}

// ApplyField writes an edited FormField back into the tree. For a form
// built from children, each changed attribute is written to the
// originating child's props; for a form with authored props.fields the
// changes are merged into the matching entry. gridColumn is derived from the child's
// placement and is not written back.
func ApplyField(u PropertyUpdater, form *model.Component, edited model.FormField) error {
	if form == nil {
		return model.NewBadRequestError("form component is required")
	}

	if HasExplicitFields(form) {
		return applyExplicit(u, form, edited)
	}

	child := model.FindComponent(form.Children, edited.ID)
	if child == nil || !IsInputType(child.Type) {
		return model.NewComponentNotFoundError(edited.ID)
	}
	current := ToFormField(child)

	for _, w := range diff(current, edited) {
		path, value, ok := childPath(child, w)
		if !ok {
			continue
		}
		if err := u.UpdateComponentProperty(child.ID, path, value); err != nil {
			return fmt.Errorf("writing %s of %q: %w", path, child.ID, err)
		}
	}
	return nil
}

type write struct {
	key   string
	value any
}

// diff lists the attributes of edited that differ from current, keyed by
// their field entry name.
func diff(current, edited model.FormField) []write {
	var out []write
	if edited.Label != current.Label {
		out = append(out, write{"label", edited.Label})
	}
	if edited.Placeholder != current.Placeholder {
		out = append(out, write{"placeholder", edited.Placeholder})
	}
	if edited.Required != current.Required {
		out = append(out, write{"required", edited.Required})
	}
	if edited.Disabled != current.Disabled {
		out = append(out, write{"disabled", edited.Disabled})
	}
	if edited.HelpText != current.HelpText {
		out = append(out, write{"helpText", edited.HelpText})
	}
	if !reflect.DeepEqual(edited.DefaultValue, current.DefaultValue) {
		out = append(out, write{"defaultValue", edited.DefaultValue})
	}
	if !reflect.DeepEqual(edited.Options, current.Options) {
		opts := make([]any, len(edited.Options))
		for i, o := range edited.Options {
			opts[i] = map[string]any{"label": o.Label, "value": o.Value}
		}
		out = append(out, write{"options", opts})
	}
	if !reflect.DeepEqual(edited.Validation, current.Validation) {
		out = append(out, write{"validation", edited.Validation})
	}
	if edited.Type != "" && edited.Type != current.Type {
		out = append(out, write{"type", edited.Type})
	}
	return out
}

// childPath maps a field attribute onto the property of the child
// component it is read from. ok is false for attributes a child cannot
// hold.
func childPath(child *model.Component, w write) (path string, value any, ok bool) {
	switch w.key {
	case "type":
		ct, known := ComponentType(model.Stringify(w.value))
		return "type", ct, known
	case "label":
		if child.Type == model.TypeText && !child.Props.Has("label") {
			return "props.content", w.value, true
		}
	}
	return "props." + w.key, w.value, true
}

// applyExplicit merges the edited attributes into the matching authored
// entry. Keys the edit does not touch are kept as authored.
func applyExplicit(u PropertyUpdater, form *model.Component, edited model.FormField) error {
	for i, entry := range form.Props.Slice("fields") {
		current := FromEntry(entry)
		if current.ID != edited.ID {
			continue
		}

		merged := make(map[string]any)
		if m := entryMap(entry); m != nil {
			for k, v := range m {
				merged[k] = v
			}
		} else {
			merged["id"] = current.ID
		}

		changed := false
		for _, w := range diff(current, edited) {
			merged[w.key] = w.value
			changed = true
		}
		if edited.GridColumn != "" && edited.GridColumn != current.GridColumn {
			merged["gridColumn"] = edited.GridColumn
			changed = true
		}
		for k, v := range edited.Extra {
			if !reflect.DeepEqual(merged[k], v) {
				merged[k] = v
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return u.UpdateComponentProperty(form.ID, fmt.Sprintf("props.fields.%d", i), merged)
	}
	return model.NewComponentNotFoundError(edited.ID)
}
