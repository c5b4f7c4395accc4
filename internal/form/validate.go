package form

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pitabwire/designer/model"
)

// Validation rule names.
const (
	RuleRequired  = "required"
	RuleEmail     = "email"
	RuleNumber    = "number"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
)

// Rule is one validator attached to a field.
type Rule struct {
	Name string `json:"name"`
	Arg  any    `json:"arg,omitempty"`
}

// BuildModel returns the initial value of every field keyed by field id.
// Labels carry no value and are skipped.
func BuildModel(fc model.FormConfig) map[string]any {
	out := make(map[string]any, len(fc.Fields))
	for _, f := range fc.Fields {
		if f.ID == "" || f.Type == "label" {
			continue
		}
		switch {
		case f.DefaultValue != nil:
			out[f.ID] = f.DefaultValue
		case f.Type == "checkbox":
			out[f.ID] = false
		default:
			out[f.ID] = ""
		}
	}
	return out
}

// BuildValidators returns the rules of every field that has any.
func BuildValidators(fc model.FormConfig) map[string][]Rule {
	out := make(map[string][]Rule)
	for _, f := range fc.Fields {
		if f.ID == "" {
			continue
		}
		var rules []Rule
		if f.Required {
			rules = append(rules, Rule{Name: RuleRequired})
		}
		switch f.Type {
		case "email":
			rules = append(rules, Rule{Name: RuleEmail})
		case "number":
			rules = append(rules, Rule{Name: RuleNumber})
		}
		for _, name := range []string{RuleMin, RuleMax, RuleMinLength, RuleMaxLength, RulePattern} {
			if v, ok := f.Validation[name]; ok && v != nil {
				rules = append(rules, Rule{Name: name, Arg: v})
			}
		}
		if len(rules) > 0 {
			out[f.ID] = rules
		}
	}
	return out
}

// ValidateValues checks submitted values against the form's rules and
// returns one error per failing field, in field order.
func ValidateValues(fc model.FormConfig, values map[string]any) []model.FieldError {
	validators := BuildValidators(fc)
	var errs []model.FieldError
	for _, f := range fc.Fields {
		for _, r := range validators[f.ID] {
			if msg := check(r, values[f.ID]); msg != "" {
				errs = append(errs, model.FieldError{
					Field:   f.ID,
					Code:    strings.ToUpper(r.Name),
					Message: fmt.Sprintf("%s %s", f.Label, msg),
				})
				break
			}
		}
	}
	return errs
}

func check(r Rule, v any) string {
	s := strings.TrimSpace(model.Stringify(v))
	if r.Name == RuleRequired {
		if b, ok := v.(bool); ok {
			if !b {
				return "is required"
			}
			return ""
		}
		if s == "" {
			return "is required"
		}
		return ""
	}
	if s == "" {
		return ""
	}

	switch r.Name {
	case RuleEmail:
		if !validEmail(s) {
			return "must be a valid email address"
		}
	case RuleNumber:
		if _, ok := model.ToFloat(v); !ok {
			return "must be a number"
		}
	case RuleMin, RuleMax:
		n, ok := model.ToFloat(v)
		limit, lok := model.ToFloat(r.Arg)
		if !ok || !lok {
			return ""
		}
		if r.Name == RuleMin && n < limit {
			return fmt.Sprintf("must be at least %s", model.Stringify(r.Arg))
		}
		if r.Name == RuleMax && n > limit {
			return fmt.Sprintf("must be at most %s", model.Stringify(r.Arg))
		}
	case RuleMinLength, RuleMaxLength:
		limit, ok := model.ToInt(r.Arg)
		if !ok {
			return ""
		}
		n := len([]rune(s))
		if r.Name == RuleMinLength && n < limit {
			return fmt.Sprintf("must be at least %d characters", limit)
		}
		if r.Name == RuleMaxLength && n > limit {
			return fmt.Sprintf("must be at most %d characters", limit)
		}
	case RulePattern:
		pattern, _ := r.Arg.(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return ""
		}
		if !re.MatchString(s) {
			return "has an invalid format"
		}
	}
	return ""
}

func validEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".") && !strings.HasPrefix(domain, ".")
}
