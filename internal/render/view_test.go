package render

import (
	"errors"
	"testing"

	"github.com/pitabwire/designer/internal/store"
	"github.com/pitabwire/designer/model"
)

func viewConfig() *model.Configuration {
	return &model.Configuration{
		Components: []*model.Component{
			{ID: "hero", Type: model.TypeHeader, Props: model.Props{"title": "Welcome"}},
			{ID: "note", Type: model.TypeText, Props: model.Props{"content": "hi"}},
		},
		Metadata: map[string]any{"title": "Home"},
	}
}

func TestView_followsStore(t *testing.T) {
	st := store.New()
	if err := st.Load(viewConfig()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	canvas := NewView(nil, model.RenderContext{Mode: model.ModeCanvas})
	preview := NewView(nil, model.RenderContext{Mode: model.ModePreview, ViewMode: model.ViewDesktop})
	canvas.Attach(st)
	preview.Attach(st)

	if n := len(preview.Output().Nodes); n != 2 {
		t.Fatalf("preview nodes on attach = %d, want 2", n)
	}

	if err := st.DeleteComponent("note"); err != nil {
		t.Fatalf("DeleteComponent() error = %v", err)
	}
	for _, v := range []*View{canvas, preview} {
		out := v.Output()
		if len(out.Nodes) != 1 || out.Nodes[0].ID != "hero" {
			t.Errorf("%s nodes after delete = %d", out.Mode, len(out.Nodes))
		}
	}

	preview.Detach()
	st.Undo()
	if n := len(preview.Output().Nodes); n != 1 {
		t.Errorf("detached preview nodes = %d, want 1", n)
	}
	if n := len(canvas.Output().Nodes); n != 2 {
		t.Errorf("canvas nodes after undo = %d, want 2", n)
	}
}

func TestView_errorState(t *testing.T) {
	v := NewView(nil, model.RenderContext{Mode: model.ModePreview})
	v.Handle(store.Change{Config: viewConfig()})

	v.Fail(errors.New("bad document"))
	out := v.Output()
	if out.Error != "bad document" || len(out.Nodes) != 0 {
		t.Errorf("error output = %+v", out)
	}
	if out.Title != "Home" {
		t.Errorf("title = %q, want the last good title", out.Title)
	}

	// A nil change is ignored and keeps the error.
	v.Handle(store.Change{})
	if v.Err() == "" {
		t.Error("empty change cleared the error")
	}

	v.Handle(store.Change{Config: viewConfig()})
	if v.Err() != "" || len(v.Output().Nodes) != 2 {
		t.Errorf("view did not recover: err = %q", v.Err())
	}

	v.Fail(nil)
	if v.Err() != "" {
		t.Error("Fail(nil) entered the error state")
	}
}

func TestView_SetContext(t *testing.T) {
	v := NewView(nil, model.RenderContext{Mode: model.ModePreview, ViewMode: model.ViewDesktop})
	v.Handle(store.Change{Config: &model.Configuration{
		Components: []*model.Component{
			{ID: "admin", Type: model.TypeText, Conditions: []model.Condition{
				{Field: "role", Operator: model.OpEquals, Value: "admin"},
			}},
		},
	}})

	if n := len(v.Output().Nodes); n != 0 {
		t.Errorf("nodes without values = %d, want 0", n)
	}

	v.SetContext(model.ViewMobile, map[string]any{"role": "admin"})
	out := v.Output()
	if len(out.Nodes) != 1 || out.ViewMode != model.ViewMobile {
		t.Errorf("output = %+v", out)
	}

	v.SetContext("", nil)
	rc := v.Context()
	if rc.ViewMode != model.ViewMobile || rc.Mode != model.ModePreview {
		t.Errorf("context = %+v, want view mode kept", rc)
	}
}

func TestView_errorSurvivesNonEditingChanges(t *testing.T) {
	st := store.New()
	if err := st.Load(viewConfig()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	v := NewView(nil, model.RenderContext{Mode: model.ModePreview})
	v.Attach(st)
	defer v.Detach()

	v.Fail(errors.New("load failed"))
	if err := st.Select("hero"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if v.Err() != "load failed" {
		t.Errorf("Err() after select = %q, want load failed", v.Err())
	}
	st.MarkSaved()
	if v.Err() != "load failed" {
		t.Errorf("Err() after mark saved = %q, want load failed", v.Err())
	}

	if err := st.UpdateComponentProperty("hero", "props.title", "Hi"); err != nil {
		t.Fatal(err)
	}
	if v.Err() != "" {
		t.Errorf("Err() after an edit = %q, want cleared", v.Err())
	}
}
