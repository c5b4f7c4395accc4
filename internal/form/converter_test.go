package form

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/pitabwire/designer/internal/store"
	"github.com/pitabwire/designer/model"
)

func signupForm() *model.Component {
	return &model.Component{
		ID:    "signup",
		Type:  model.TypeForm,
		Props: model.Props{"title": "Sign up", "description": "Join us"},
		Children: []*model.Component{
			{
				ID:   "name",
				Type: model.TypeTextInput,
				Props: model.Props{
					"label":        "Name",
					"required":     true,
					"gridPosition": map[string]any{"row": 0.0, "col": 0.0, "width": 2.0, "height": 1.0},
				},
			},
			{
				ID:           "email",
				Type:         model.TypeEmailInput,
				Props:        model.Props{"label": "Email", "placeholder": "you@example.com"},
				GridPosition: &model.GridPosition{Row: 1, Col: 2, Width: 3, Height: 2},
			},
			{ID: "divider", Type: model.TypeCard, Props: model.Props{}},
			{ID: "go", Type: model.TypeSubmitButton, Props: model.Props{"label": "Create"}},
			{ID: "clear", Type: model.TypeResetButton, Props: model.Props{}},
		},
	}
}

func TestToFormConfig_fromChildren(t *testing.T) {
	fc, err := ToFormConfig(signupForm())
	if err != nil {
		t.Fatalf("ToFormConfig() error = %v", err)
	}

	if fc.Title != "Sign up" || fc.Description != "Join us" {
		t.Errorf("Title/Description = %q/%q", fc.Title, fc.Description)
	}
	if len(fc.Fields) != 2 {
		t.Fatalf("Fields = %d, want 2", len(fc.Fields))
	}

	name, email := fc.Fields[0], fc.Fields[1]
	if name.Type != "text" || !name.Required || name.GridColumn != "1 / 1 / 2 / 3" {
		t.Errorf("name field = %+v", name)
	}
	if email.Type != "email" || email.Placeholder != "you@example.com" || email.GridColumn != "2 / 3 / 4 / 6" {
		t.Errorf("email field = %+v", email)
	}

	if len(fc.Actions) != 2 {
		t.Fatalf("Actions = %d, want 2", len(fc.Actions))
	}
	if fc.Actions[0] != (model.FormAction{ID: "go", Type: "submit", Label: "Create"}) {
		t.Errorf("Actions[0] = %+v", fc.Actions[0])
	}
	if fc.Actions[1].Label != "Reset" {
		t.Errorf("Actions[1].Label = %q, want Reset", fc.Actions[1].Label)
	}
}

func TestToFormConfig_labelFallbacks(t *testing.T) {
	form := &model.Component{ID: "f", Type: model.TypeForm, Props: model.Props{}, Children: []*model.Component{
		{ID: "intro", Type: model.TypeText, Props: model.Props{"content": "Tell us about you"}},
		{ID: "bare", Type: model.TypeTextarea, Props: model.Props{}},
		{ID: "color", Type: "color-input", Props: model.Props{"label": "Colour"}},
	}}
	fc, err := ToFormConfig(form)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Fields) != 3 {
		t.Fatalf("Fields = %d, want 3", len(fc.Fields))
	}
	if fc.Fields[0].Label != "Tell us about you" || fc.Fields[0].Type != "label" {
		t.Errorf("intro = %+v", fc.Fields[0])
	}
	if fc.Fields[1].Label != DefaultLabel {
		t.Errorf("bare label = %q, want %q", fc.Fields[1].Label, DefaultLabel)
	}
	if fc.Fields[2].Type != "text" {
		t.Errorf("unrecognized input type = %q, want text", fc.Fields[2].Type)
	}
	if fc.Fields[1].GridColumn != "" {
		t.Errorf("unplaced field GridColumn = %q, want empty", fc.Fields[1].GridColumn)
	}
}

func TestToFormConfig_explicitFieldsWin(t *testing.T) {
	form := signupForm()
	form.Props["fields"] = []any{
		map[string]any{"id": "q1", "type": "number", "label": "Age", "required": true},
	}
	fc, err := ToFormConfig(form)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Fields) != 1 || fc.Fields[0].ID != "q1" || fc.Fields[0].Type != "number" {
		t.Errorf("Fields = %+v, want the authored list", fc.Fields)
	}
}

func authoredEmail() map[string]any {
	return map[string]any{
		"id":         "email",
		"type":       "email",
		"label":      "Email",
		"required":   "true",
		"name":       "user_email",
		"validators": []any{"email"},
	}
}

func TestToFormConfig_authoredFieldsPassThrough(t *testing.T) {
	form := &model.Component{ID: "f", Type: model.TypeForm, Props: model.Props{
		"fields": []any{authoredEmail(), map[string]any{"id": "age", "type": "number", "min": 18.0}},
	}}
	fc, err := ToFormConfig(form)
	if err != nil {
		t.Fatalf("ToFormConfig() error = %v", err)
	}
	if len(fc.Fields) != 2 {
		t.Fatalf("Fields = %d, want 2", len(fc.Fields))
	}
	if !fc.Fields[0].Required {
		t.Error(`required "true" should read as required`)
	}
	if fc.Fields[0].Extra["name"] != "user_email" {
		t.Errorf("Extra = %v, want name kept", fc.Fields[0].Extra)
	}

	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Fields []map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Fields[0], authoredEmail()) {
		t.Errorf("encoded field = %v, want the authored entry %v", out.Fields[0], authoredEmail())
	}
	if out.Fields[1]["min"] != 18.0 {
		t.Errorf("encoded age = %v", out.Fields[1])
	}

	errs := ValidateValues(fc, map[string]any{})
	if len(errs) != 1 || errs[0].Field != "email" || errs[0].Code != "REQUIRED" {
		t.Errorf("ValidateValues() = %+v, want email required", errs)
	}
}

func TestToFormConfig_mistypedAuthoredValues(t *testing.T) {
	form := &model.Component{ID: "f", Type: model.TypeForm, Props: model.Props{
		"fields":  []any{map[string]any{"id": "q", "label": 42.0, "options": "none", "validation": "x"}, "nickname"},
		"actions": []any{map[string]any{"id": "go", "type": "submit", "label": "Go"}},
	}}
	fc, err := ToFormConfig(form)
	if err != nil {
		t.Fatalf("ToFormConfig() error = %v", err)
	}
	if fc.Fields[0].Label != "42" || fc.Fields[0].Options != nil || fc.Fields[0].Validation != nil {
		t.Errorf("q = %+v", fc.Fields[0])
	}
	if fc.Fields[1].ID != "nickname" {
		t.Errorf("string entry = %+v", fc.Fields[1])
	}
	if len(fc.Actions) != 1 || fc.Actions[0].Label != "Go" {
		t.Errorf("Actions = %+v", fc.Actions)
	}
}

func TestToFormConfig_emptyExplicitFieldsFallBack(t *testing.T) {
	form := signupForm()
	form.Props["fields"] = []any{}
	fc, err := ToFormConfig(form)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Fields) != 2 {
		t.Errorf("Fields = %d, want children-derived 2", len(fc.Fields))
	}
}

func TestToFormField_options(t *testing.T) {
	c := &model.Component{ID: "plan", Type: model.TypeSelect, Props: model.Props{
		"options": []any{"free", map[string]any{"label": "Pro plan", "value": "pro"}},
	}}
	f := ToFormField(c)
	want := []model.FieldOption{{Label: "free", Value: "free"}, {Label: "Pro plan", Value: "pro"}}
	if len(f.Options) != 2 || f.Options[0] != want[0] || f.Options[1] != want[1] {
		t.Errorf("Options = %+v, want %+v", f.Options, want)
	}
}

func TestApplyField_writesThroughStore(t *testing.T) {
	s := store.New()
	if err := s.Load(&model.Configuration{Components: []*model.Component{signupForm()}}); err != nil {
		t.Fatal(err)
	}

	form, _ := s.Component("signup")
	fc, err := ToFormConfig(form)
	if err != nil {
		t.Fatal(err)
	}
	edited := fc.Fields[1]
	edited.Label = "Work email"

	if err := ApplyField(s, form, edited); err != nil {
		t.Fatalf("ApplyField() error = %v", err)
	}

	child, _ := s.Component("email")
	if got := child.Props.String("label", ""); got != "Work email" {
		t.Errorf("child props.label = %q, want Work email", got)
	}
	if !s.CanUndo() {
		t.Error("write-back should go through a store command")
	}

	form, _ = s.Component("signup")
	fc, _ = ToFormConfig(form)
	if fc.Fields[1].Label != "Work email" {
		t.Errorf("re-derived label = %q", fc.Fields[1].Label)
	}
	if fc.Fields[1].GridColumn != "2 / 3 / 4 / 6" {
		t.Errorf("GridColumn changed to %q", fc.Fields[1].GridColumn)
	}
}

func TestApplyField_onlyChangedAttributes(t *testing.T) {
	rec := &recorder{}
	form := signupForm()
	fc, _ := ToFormConfig(form)

	edited := fc.Fields[0]
	edited.Required = false
	edited.Type = "password"
	if err := ApplyField(rec, form, edited); err != nil {
		t.Fatal(err)
	}
	want := []string{"name:props.required", "name:type"}
	if len(rec.paths) != len(want) || rec.paths[0] != want[0] || rec.paths[1] != want[1] {
		t.Errorf("writes = %v, want %v", rec.paths, want)
	}
	if rec.values[1] != model.TypePasswordInput {
		t.Errorf("type written = %v", rec.values[1])
	}
}

func TestApplyField_textContent(t *testing.T) {
	rec := &recorder{}
	form := &model.Component{ID: "f", Type: model.TypeForm, Props: model.Props{}, Children: []*model.Component{
		{ID: "intro", Type: model.TypeText, Props: model.Props{"content": "Hi"}},
	}}
	fc, _ := ToFormConfig(form)
	edited := fc.Fields[0]
	edited.Label = "Hello"
	if err := ApplyField(rec, form, edited); err != nil {
		t.Fatal(err)
	}
	if len(rec.paths) != 1 || rec.paths[0] != "intro:props.content" {
		t.Errorf("writes = %v", rec.paths)
	}
}

func TestApplyField_explicitFields(t *testing.T) {
	rec := &recorder{}
	form := signupForm()
	form.Props["fields"] = []any{
		map[string]any{"id": "a", "type": "text", "label": "A"},
		map[string]any{"id": "b", "type": "text", "label": "B"},
	}
	if err := ApplyField(rec, form, model.FormField{ID: "b", Type: "text", Label: "Bee"}); err != nil {
		t.Fatal(err)
	}
	if len(rec.paths) != 1 || rec.paths[0] != "signup:props.fields.1" {
		t.Errorf("writes = %v", rec.paths)
	}
	entry := rec.values[0].(map[string]any)
	if entry["label"] != "Bee" {
		t.Errorf("entry = %v", entry)
	}
}

func TestApplyField_explicitKeepsAuthoredKeys(t *testing.T) {
	s := store.New()
	form := &model.Component{ID: "f", Type: model.TypeForm, Props: model.Props{
		"fields": []any{authoredEmail()},
	}}
	if err := s.Load(&model.Configuration{Components: []*model.Component{form}}); err != nil {
		t.Fatal(err)
	}

	current, _ := s.Component("f")
	fc, _ := ToFormConfig(current)
	edited := fc.Fields[0]
	edited.Label = "Work email"
	if err := ApplyField(s, current, edited); err != nil {
		t.Fatalf("ApplyField() error = %v", err)
	}

	current, _ = s.Component("f")
	entry := current.Props.Slice("fields")[0].(map[string]any)
	want := authoredEmail()
	want["label"] = "Work email"
	if !reflect.DeepEqual(entry, want) {
		t.Errorf("entry = %v, want %v", entry, want)
	}
}

func TestApplyField_explicitUnchangedIsNoop(t *testing.T) {
	rec := &recorder{}
	form := &model.Component{ID: "f", Type: model.TypeForm, Props: model.Props{
		"fields": []any{authoredEmail()},
	}}
	fc, _ := ToFormConfig(form)
	if err := ApplyField(rec, form, fc.Fields[0]); err != nil {
		t.Fatal(err)
	}
	if len(rec.paths) != 0 {
		t.Errorf("writes = %v, want none", rec.paths)
	}
}

func TestApplyField_unknownField(t *testing.T) {
	err := ApplyField(&recorder{}, signupForm(), model.FormField{ID: "ghost"})
	if !model.HasCode(err, model.ErrComponentNotFound) {
		t.Errorf("ApplyField() error = %v, want COMPONENT_NOT_FOUND", err)
	}
	err = ApplyField(&recorder{}, signupForm(), model.FormField{ID: "go"})
	if !model.HasCode(err, model.ErrComponentNotFound) {
		t.Errorf("ApplyField() on an action error = %v, want COMPONENT_NOT_FOUND", err)
	}
}

type recorder struct {
	paths  []string
	values []any
}

func (r *recorder) UpdateComponentProperty(id, path string, value any) error {
	r.paths = append(r.paths, id+":"+path)
	r.values = append(r.values, value)
	return nil
}
