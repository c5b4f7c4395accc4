package render

import (
	"strings"

	"github.com/pitabwire/designer/model"
)

// EvaluateConditions reports whether every condition holds against the
// rendering context. An empty list is always visible.
func EvaluateConditions(conds []model.Condition, rc model.RenderContext) bool {
	for _, c := range conds {
		if !Evaluate(c, rc) {
			return false
		}
	}
	return true
}

// Evaluate checks one condition. The field is a dotted path into the
// context; a missing field equals only a nil value. Unknown operators are
// false.
func Evaluate(cond model.Condition, rc model.RenderContext) bool {
	actual, found := rc.Lookup(cond.Field)

	switch cond.Operator {
	case model.OpEquals:
		if !found {
			return cond.Value == nil
		}
		return equal(actual, cond.Value)
	case model.OpNotEquals:
		if !found {
			return cond.Value != nil
		}
		return !equal(actual, cond.Value)
	case model.OpContains:
		return found && contains(actual, cond.Value)
	case model.OpGreaterThan:
		a, b, ok := numbers(actual, cond.Value)
		return found && ok && a > b
	case model.OpLessThan:
		a, b, ok := numbers(actual, cond.Value)
		return found && ok && a < b
	default:
		return false
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return model.Stringify(a) == model.Stringify(b)
}

// contains matches substrings of strings and elements of lists.
func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, model.Stringify(needle))
	case []any:
		for _, v := range h {
			if equal(v, needle) {
				return true
			}
		}
	case []string:
		n := model.Stringify(needle)
		for _, v := range h {
			if v == n {
				return true
			}
		}
	}
	return false
}

func numbers(a, b any) (float64, float64, bool) {
	x, ok := model.ToFloat(a)
	if !ok {
		return 0, 0, false
	}
	y, ok := model.ToFloat(b)
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}
