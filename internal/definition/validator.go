package definition

import (
	"encoding/json"
	"fmt"

	"github.com/pitabwire/designer/model"
	"gopkg.in/yaml.v3"
)

// Additional field-level codes reported alongside the required-field codes
// declared in the model package.
const (
	CodeDuplicateID         = "DUPLICATE_COMPONENT_ID"
	CodeInvalidGridPosition = "INVALID_GRID_POSITION"
	CodeInvalidShape        = "INVALID_SHAPE"
)

// Parse decodes a JSON configuration document and validates it. Syntax
// errors are returned as plain errors, structural problems as a
// CONFIG_VALIDATION envelope. A "components" member that is absent or not
// an array is rejected with MISSING_COMPONENTS_ARRAY before the typed
// decode runs, so a null or object value never passes as an empty tree.
func Parse(data []byte) (*model.Configuration, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	return fromRaw(raw)
}

// ParseYAML decodes a YAML configuration document. The document is
// normalized through the JSON shape so both encodings share one validator.
func ParseYAML(data []byte) (*model.Configuration, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	return fromRaw(raw)
}

func fromRaw(raw map[string]any) (*model.Configuration, error) {
	if _, ok := raw["components"].([]any); !ok {
		return nil, model.NewConfigValidationError([]model.FieldError{missingComponents()})
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing configuration: %w", err)
	}
	var cfg model.Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, model.NewConfigValidationError([]model.FieldError{{
			Field:   "components",
			Code:    CodeInvalidShape,
			Message: err.Error(),
		}})
	}
	return Validate(&cfg)
}

// Validate checks the structural rules of a configuration and returns a
// copy with defaults applied: type page, a column stack layout, a default
// title and empty props on every component that lacks them. The input is
// never modified. All problems are reported together in one
// CONFIG_VALIDATION error.
func Validate(cfg *model.Configuration) (*model.Configuration, error) {
	if cfg == nil || cfg.Components == nil {
		return nil, model.NewConfigValidationError([]model.FieldError{missingComponents()})
	}

	out := cfg.Clone()
	var errs []model.FieldError
	seen := make(map[string]string)
	for i, c := range out.Components {
		errs = append(errs, validateComponent(fmt.Sprintf("components[%d]", i), c, seen)...)
	}
	if len(errs) > 0 {
		return nil, model.NewConfigValidationError(errs)
	}

	applyDefaults(out)
	return out, nil
}

// ValidateComponent checks a single component subtree, as accepted by the
// add and update commands.
func ValidateComponent(c *model.Component) error {
	errs := validateComponent("component", c, make(map[string]string))
	if len(errs) > 0 {
		return model.NewConfigValidationError(errs)
	}
	return nil
}

func validateComponent(prefix string, c *model.Component, seen map[string]string) []model.FieldError {
	if c == nil {
		return []model.FieldError{{
			Field:   prefix,
			Code:    model.CodeComponentMissingID,
			Message: "component is null",
		}}
	}

	var errs []model.FieldError
	if c.ID == "" {
		errs = append(errs, model.FieldError{
			Field:   prefix + ".id",
			Code:    model.CodeComponentMissingID,
			Message: "id is required",
		})
	} else if first, dup := seen[c.ID]; dup {
		errs = append(errs, model.FieldError{
			Field:   prefix + ".id",
			Code:    CodeDuplicateID,
			Message: fmt.Sprintf("id %q is already used by %s", c.ID, first),
		})
	} else {
		seen[c.ID] = prefix
	}
	if c.Type == "" {
		errs = append(errs, model.FieldError{
			Field:   prefix + ".type",
			Code:    model.CodeComponentMissingType,
			Message: "type is required",
		})
	}
	if c.Props == nil {
		c.Props = model.Props{}
	}
	if pos, ok := c.Position(); ok {
		if pos.Row < 0 || pos.Col < 0 || pos.Width < 1 || pos.Height < 1 {
			errs = append(errs, model.FieldError{
				Field:   prefix + ".gridPosition",
				Code:    CodeInvalidGridPosition,
				Message: "row and col must be non-negative, width and height at least 1",
			})
		}
	}

	for i, child := range c.Children {
		errs = append(errs, validateComponent(fmt.Sprintf("%s.children[%d]", prefix, i), child, seen)...)
	}
	return errs
}

func applyDefaults(cfg *model.Configuration) {
	if cfg.Type == "" {
		cfg.Type = model.ConfigTypePage
	}
	if cfg.Layout == nil {
		cfg.Layout = &model.LayoutDescriptor{Type: model.LayoutStack, Direction: "column"}
	}
	if cfg.Metadata == nil {
		cfg.Metadata = map[string]any{}
	}
	if _, ok := cfg.Metadata["title"]; !ok {
		cfg.Metadata["title"] = model.DefaultTitle
	}
}

func missingComponents() model.FieldError {
	return model.FieldError{
		Field:   "components",
		Code:    model.CodeMissingComponentsArray,
		Message: "components must be an array",
	}
}
