package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pitabwire/designer/model"
)

// setComponentPath assigns value at a dotted path relative to the
// component, e.g. "props.label" or "props.gridPosition.width". Missing or
// non-object intermediates are replaced by empty objects. Numeric segments
// index into existing lists.
func setComponentPath(c *model.Component, path string, value any) (*model.Component, error) {
	if path == "" {
		return nil, model.NewBadRequestError("property path is required")
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, model.NewBadRequestError(fmt.Sprintf("invalid property path %q", path))
		}
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding component: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding component: %w", err)
	}

	if err := assign(doc, parts, value); err != nil {
		return nil, model.NewBadRequestError(fmt.Sprintf("property path %q: %v", path, err))
	}

	data, err = json.Marshal(doc)
	if err != nil {
		return nil, model.NewBadRequestError(fmt.Sprintf("property path %q: value is not serializable: %v", path, err))
	}
	var out model.Component
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, model.NewBadRequestError(fmt.Sprintf("property path %q: %v", path, err))
	}
	return &out, nil
}

func assign(doc map[string]any, parts []string, value any) error {
	var current any = doc
	for i, part := range parts {
		last := i == len(parts)-1
		switch node := current.(type) {
		case map[string]any:
			if last {
				node[part] = value
				return nil
			}
			next, ok := node[part]
			if !ok || !isContainer(next) {
				next = map[string]any{}
				node[part] = next
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("index %q out of range", part)
			}
			if last {
				node[idx] = value
				return nil
			}
			if !isContainer(node[idx]) {
				node[idx] = map[string]any{}
			}
			current = node[idx]
		}
	}
	return nil
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
