package model

import (
	"fmt"
	"math"
	"strconv"
)

// Props is the open, type-specific property bag of a component. Accessors
// return the supplied default when a key is absent or holds an unexpected
// type.
type Props map[string]any

// Has reports whether key is present with a non-nil value.
func (p Props) Has(key string) bool {
	if p == nil {
		return false
	}
	v, ok := p[key]
	return ok && v != nil
}

// String returns the value of key rendered as a string, or def.
func (p Props) String(key, def string) string {
	if !p.Has(key) {
		return def
	}
	switch v := p[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return Stringify(v)
	}
}

// Bool returns the boolean value of key, or def.
func (p Props) Bool(key string, def bool) bool {
	if !p.Has(key) {
		return def
	}
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

// Int returns the integer value of key, or def.
func (p Props) Int(key string, def int) int {
	if !p.Has(key) {
		return def
	}
	n, ok := ToInt(p[key])
	if !ok {
		return def
	}
	return n
}

// Slice returns the value of key when it is a list, or nil.
func (p Props) Slice(key string) []any {
	if !p.Has(key) {
		return nil
	}
	switch v := p[key].(type) {
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

// Map returns the value of key when it is an object, or nil.
func (p Props) Map(key string) map[string]any {
	if !p.Has(key) {
		return nil
	}
	m, _ := p[key].(map[string]any)
	return m
}

// GridPosition decodes props.gridPosition. Missing width and height
// default to 1.
func (p Props) GridPosition() (GridPosition, bool) {
	m := p.Map("gridPosition")
	if m == nil {
		return GridPosition{}, false
	}
	pos := GridPosition{Width: 1, Height: 1}
	pos.Row, _ = ToInt(m["row"])
	pos.Col, _ = ToInt(m["col"])
	if w, ok := ToInt(m["width"]); ok {
		pos.Width = w
	}
	if h, ok := ToInt(m["height"]); ok {
		pos.Height = h
	}
	return pos, true
}

// Clone returns a deep copy of the property bag.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	return Props(cloneMap(p))
}

// ToInt converts JSON and YAML numeric representations to int.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(math.Round(float64(n))), true
	case float64:
		return int(math.Round(n)), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

// ToFloat converts numeric values and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Stringify renders a scalar the way it appears in JSON: integral floats
// without a decimal point, nil as the empty string.
func Stringify(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return Stringify(float64(n))
	default:
		return fmt.Sprint(v)
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Props:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = cloneMap(e)
		}
		return out
	default:
		return v
	}
}
