package definition

import (
	"testing"

	"github.com/pitabwire/designer/model"
)

func TestLoader_LoadFile_json(t *testing.T) {
	l := NewLoader()
	def, err := l.LoadFile("testdata/layouts/landing.json")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if def.Name != "landing" {
		t.Errorf("Name = %q, want landing", def.Name)
	}
	if def.Title() != "Landing" {
		t.Errorf("Title() = %q, want Landing", def.Title())
	}
	if len(def.Config.Components) != 3 {
		t.Fatalf("Components = %d, want 3", len(def.Config.Components))
	}
	if def.Config.Components[2].Conditions[0].Field != "user.loggedIn" {
		t.Errorf("Condition.Field = %q", def.Config.Components[2].Conditions[0].Field)
	}
	if def.Checksum == "" {
		t.Error("Checksum should not be empty")
	}
	if def.SourceFile != "testdata/layouts/landing.json" {
		t.Errorf("SourceFile = %q", def.SourceFile)
	}
}

func TestLoader_LoadFile_yaml(t *testing.T) {
	l := NewLoader()
	def, err := l.LoadFile("testdata/layouts/signup.yaml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if def.Name != "signup" {
		t.Errorf("Name = %q, want signup", def.Name)
	}
	// No metadata in the file, so the default title applies.
	if def.Config.Title() != model.DefaultTitle {
		t.Errorf("Title = %q, want %q", def.Config.Title(), model.DefaultTitle)
	}
	form := def.Config.FindByID("signup")
	if form == nil || len(form.Children) != 3 {
		t.Fatalf("signup form = %+v", form)
	}
	pos, ok := form.Children[1].Position()
	if !ok || pos.Row != 1 || pos.Width != 2 {
		t.Errorf("email Position() = %+v, %v", pos, ok)
	}
	if def.Config.Layout.Columns != 2 {
		t.Errorf("Layout.Columns = %d, want 2", def.Config.Layout.Columns)
	}
}

func TestLoader_LoadFile_not_found(t *testing.T) {
	l := NewLoader()
	_, err := l.LoadFile("testdata/nonexistent.json")
	if !model.HasCode(err, model.ErrConfigLoadFailed) {
		t.Fatalf("LoadFile() error = %v, want CONFIG_LOAD_FAILED", err)
	}
}

func TestLoader_LoadFile_malformed(t *testing.T) {
	l := NewLoader()
	_, err := l.LoadFile("testdata/invalid/broken.json")
	if !model.HasCode(err, model.ErrConfigLoadFailed) {
		t.Fatalf("LoadFile() error = %v, want CONFIG_LOAD_FAILED", err)
	}
}

func TestLoader_LoadFile_invalid_structure(t *testing.T) {
	l := NewLoader()
	_, err := l.LoadFile("testdata/unvalidated/missing_fields.json")
	if !model.HasCode(err, model.ErrConfigValidation) {
		t.Fatalf("LoadFile() error = %v, want CONFIG_VALIDATION", err)
	}
}

func TestLoader_LoadAll(t *testing.T) {
	l := NewLoader()
	defs, err := l.LoadAll([]string{"testdata/layouts"})
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("LoadAll() = %d layouts, want 2", len(defs))
	}
}

func TestLoader_LoadAll_failsOnBadFile(t *testing.T) {
	l := NewLoader()
	_, err := l.LoadAll([]string{"testdata/layouts", "testdata/invalid"})
	if err == nil {
		t.Fatal("LoadAll() should fail when a file is malformed")
	}
}

func TestLoader_LoadAll_missingDirectory(t *testing.T) {
	l := NewLoader()
	_, err := l.LoadAll([]string{"testdata/nope"})
	if err == nil {
		t.Fatal("LoadAll() should fail for a missing directory")
	}
}

func TestLayoutName(t *testing.T) {
	tests := map[string]string{
		"a/b/landing.json": "landing",
		"signup.YAML":      "signup",
		"x.y.yml":          "x.y",
	}
	for in, want := range tests {
		if got := LayoutName(in); got != want {
			t.Errorf("LayoutName(%q) = %q, want %q", in, got, want)
		}
	}
}
