package session

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pitabwire/designer/internal/canvas"
	"github.com/pitabwire/designer/internal/definition"
	"github.com/pitabwire/designer/internal/observability"
	"github.com/pitabwire/designer/internal/persistence"
	"github.com/pitabwire/designer/internal/render"
	"github.com/pitabwire/designer/internal/store"
	"github.com/pitabwire/designer/model"
)

func newLanding(t *testing.T) (*Manager, *Session) {
	t.Helper()
	m := NewManager(testRegistry(), persistence.NewMemoryStore())
	s, err := m.Create("landing")
	if err != nil {
		t.Fatalf("Create(landing) error = %v", err)
	}
	return m, s
}

func nodeIDs(nodes []*render.Node) []string {
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
		ids = append(ids, nodeIDs(n.Children)...)
	}
	return ids
}

func TestSession_RenderModes(t *testing.T) {
	_, s := newLanding(t)

	canvasOut, err := s.Render(context.Background(), model.ModeCanvas, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	previewOut, err := s.Render(context.Background(), model.ModePreview, model.ViewMobile, nil)
	if err != nil {
		t.Fatal(err)
	}

	if canvasOut.Mode != model.ModeCanvas || previewOut.Mode != model.ModePreview {
		t.Errorf("modes = %q/%q", canvasOut.Mode, previewOut.Mode)
	}
	if previewOut.ViewMode != model.ViewMobile {
		t.Errorf("preview ViewMode = %q, want mobile", previewOut.ViewMode)
	}
	if canvasOut.Title != "Landing" || previewOut.Title != "Landing" {
		t.Errorf("titles = %q/%q, want Landing", canvasOut.Title, previewOut.Title)
	}
	if canvasOut.Count() != 3 || previewOut.Count() != 3 {
		t.Errorf("counts = %d/%d, want 3 (admin-note hidden)", canvasOut.Count(), previewOut.Count())
	}
}

func TestSession_RenderValues(t *testing.T) {
	_, s := newLanding(t)

	out, err := s.Render(context.Background(), model.ModePreview, "", map[string]any{"role": "admin"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count() != 4 {
		t.Errorf("Count() = %d, want 4 with role=admin; ids = %v", out.Count(), nodeIDs(out.Nodes))
	}

	// Values persist until replaced.
	out, _ = s.Render(context.Background(), model.ModeCanvas, "", nil)
	if out.Count() != 4 {
		t.Errorf("canvas Count() = %d, want 4", out.Count())
	}
	out, _ = s.Render(context.Background(), model.ModeCanvas, "", map[string]any{})
	if out.Count() != 3 {
		t.Errorf("Count() after clearing values = %d, want 3", out.Count())
	}
}

func TestSession_RenderBadMode(t *testing.T) {
	_, s := newLanding(t)
	if _, err := s.Render(context.Background(), "print", "", nil); !model.HasCode(err, model.ErrBadRequest) {
		t.Errorf("Render(print) error = %v, want BAD_REQUEST", err)
	}
}

func TestSession_editsReachBothViews(t *testing.T) {
	_, s := newLanding(t)

	err := s.Edit(context.Background(), store.OpDelete, "hero", func(st *store.Store) error {
		return st.DeleteComponent("hero")
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, mode := range []string{model.ModeCanvas, model.ModePreview} {
		out, _ := s.Render(context.Background(), mode, "", nil)
		for _, id := range nodeIDs(out.Nodes) {
			if id == "hero" {
				t.Errorf("%s still renders deleted component hero", mode)
			}
		}
	}
	st := s.State()
	if !st.Unsaved || !st.CanUndo {
		t.Errorf("State() = %+v, want unsaved with undo available", st)
	}
}

func TestSession_LoadTemplateFailure(t *testing.T) {
	_, s := newLanding(t)

	err := s.LoadTemplate("missing")
	if !model.HasCode(err, model.ErrConfigLoadFailed) {
		t.Fatalf("LoadTemplate(missing) error = %v, want CONFIG_LOAD_FAILED", err)
	}
	if s.State().Error == "" {
		t.Error("State().Error should be set after a failed load")
	}
	out, _ := s.Render(context.Background(), model.ModePreview, "", nil)
	if out.Error == "" || len(out.Nodes) != 0 {
		t.Errorf("Render() = %+v, want error output with no nodes", out)
	}
	if s.Config().FindByID("hero") == nil {
		t.Error("previous configuration should stay active")
	}

	if err := s.LoadTemplate("landing"); err != nil {
		t.Fatal(err)
	}
	if s.State().Error != "" {
		t.Errorf("State().Error = %q after a good load, want empty", s.State().Error)
	}
}

func TestSession_LoadInvalid(t *testing.T) {
	_, s := newLanding(t)

	bad := landingConfig()
	bad.Components = append(bad.Components, &model.Component{ID: "hero", Type: model.TypeText})
	if err := s.Load(bad); !model.HasCode(err, model.ErrConfigValidation) {
		t.Fatalf("Load() error = %v, want CONFIG_VALIDATION", err)
	}
	if s.State().Template != "landing" {
		t.Errorf("Template = %q, want landing kept", s.State().Template)
	}
}

func TestSession_Drop(t *testing.T) {
	_, s := newLanding(t)

	ok, err := s.Drop(canvas.DragSource{Template: &model.Component{Type: model.TypeButton, Props: model.Props{"label": "Go"}}}, 5, 5)
	if err != nil || !ok {
		t.Fatalf("Drop() = %v, %v, want accepted", ok, err)
	}
	if n := len(s.Config().Components); n != 4 {
		t.Errorf("len(Components) = %d, want 4", n)
	}

	ok, err = s.Drop(canvas.DragSource{Template: &model.Component{Type: model.TypeButton}}, 0, 0)
	if err != nil || ok {
		t.Errorf("Drop() on occupied cell = %v, %v, want rejected", ok, err)
	}

	ok, err = s.Drop(canvas.DragSource{ComponentID: "hero"}, 0, 6)
	if err != nil || !ok {
		t.Fatalf("Drop(hero) = %v, %v", ok, err)
	}
	pos, _ := s.Config().FindByID("hero").Position()
	if pos.Row != 0 || pos.Col != 6 {
		t.Errorf("hero position = %+v, want row 0 col 6", pos)
	}

	if g := s.Grid(); g.Dragging {
		t.Error("drag state should be reset after a drop")
	}
}

func TestSession_FormFields(t *testing.T) {
	_, s := newLanding(t)

	fc, err := s.FormFields("signup")
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Fields) != 1 || fc.Fields[0].ID != "email" || !fc.Fields[0].Required {
		t.Fatalf("Fields = %+v", fc.Fields)
	}

	field := fc.Fields[0]
	field.Label = "Work email"
	if err := s.UpdateFormField("signup", field); err != nil {
		t.Fatalf("UpdateFormField() error = %v", err)
	}
	if got := s.Config().FindByID("email").Props.String("label", ""); got != "Work email" {
		t.Errorf("label = %q, want Work email", got)
	}

	if _, err := s.FormFields("hero"); !model.HasCode(err, model.ErrBadRequest) {
		t.Errorf("FormFields(hero) error = %v, want BAD_REQUEST", err)
	}
	if _, err := s.FormFields("gone"); !model.HasCode(err, model.ErrComponentNotFound) {
		t.Errorf("FormFields(gone) error = %v, want COMPONENT_NOT_FOUND", err)
	}
}

func TestSession_DispatchSubmit(t *testing.T) {
	_, s := newLanding(t)

	res, err := s.Dispatch("signup", render.Event{Type: render.EventSubmit, Data: map[string]any{}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid || len(res.Errors) != 1 || res.Errors[0].Field != "email" {
		t.Errorf("empty submit = %+v, want one error on email", res)
	}

	res, err = s.Dispatch("signup", render.Event{
		Type: render.EventSubmit,
		Data: map[string]any{"values": map[string]any{"email": "ada@example.com"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid {
		t.Errorf("valid submit = %+v", res)
	}

	if _, err := s.Dispatch("hero", render.Event{Type: render.EventSubmit}); !model.HasCode(err, model.ErrBadRequest) {
		t.Errorf("submit on header = %v, want BAD_REQUEST", err)
	}
}

func TestSession_DispatchNavigate(t *testing.T) {
	_, s := newLanding(t)

	res, err := s.Dispatch("hero", render.Event{Type: render.EventNavigate, Data: map[string]any{"route": "/pricing"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Route != "/pricing" {
		t.Errorf("Route = %q, want /pricing", res.Route)
	}
	if s.values["route"] != "/pricing" {
		t.Errorf("values[route] = %v, want /pricing", s.values["route"])
	}

	if _, err := s.Dispatch("hero", render.Event{Type: render.EventNavigate}); !model.HasCode(err, model.ErrBadRequest) {
		t.Errorf("navigate without route = %v, want BAD_REQUEST", err)
	}
	if _, err := s.Dispatch("hero", render.Event{Type: "hover"}); !model.HasCode(err, model.ErrBadRequest) {
		t.Errorf("unknown event = %v, want BAD_REQUEST", err)
	}
	if _, err := s.Dispatch("nope", render.Event{Type: render.EventClick}); !model.HasCode(err, model.ErrComponentNotFound) {
		t.Errorf("event on missing component = %v, want COMPONENT_NOT_FOUND", err)
	}
}

func TestSession_SaveAndRestore(t *testing.T) {
	m, s := newLanding(t)
	ctx := context.Background()

	err := s.Edit(ctx, store.OpUpdateProperty, "hero", func(st *store.Store) error {
		return st.UpdateComponentProperty("hero", "props.title", "Hello")
	})
	if err != nil {
		t.Fatal(err)
	}
	if !s.State().Unsaved {
		t.Fatal("edit should mark the session unsaved")
	}
	if err := s.Save(ctx, "draft"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if s.State().Unsaved {
		t.Error("Save() should clear the unsaved flag")
	}

	other, err := m.Create("")
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Restore(ctx, "draft"); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got := other.Config().FindByID("hero").Props.String("title", ""); got != "Hello" {
		t.Errorf("restored title = %q, want Hello", got)
	}
	if st := other.State(); st.Template != "draft" || st.CanUndo {
		t.Errorf("State() = %+v, want template draft with fresh history", st)
	}

	if err := other.Restore(ctx, "never"); !model.HasCode(err, model.ErrNotFound) {
		t.Errorf("Restore(never) = %v, want NOT_FOUND", err)
	}
	if other.State().Error != "" {
		t.Error("a missing key should not put the views in the error state")
	}
}

func TestSession_SetGrid(t *testing.T) {
	_, s := newLanding(t)

	if _, err := s.SetGrid(4, 4); err != nil {
		t.Fatal(err)
	}
	g := s.Grid()
	if g.Rows != 4 || g.Cols != 4 || len(g.Cells) != 16 {
		t.Errorf("Grid() = %dx%d with %d cells, want 4x4 with 16", g.Rows, g.Cols, len(g.Cells))
	}
	if _, err := s.SetGrid(0, 4); err == nil {
		t.Error("SetGrid(0, 4) should fail")
	}
}

func TestSession_DispatchSubmitRedactsPasswords(t *testing.T) {
	login := model.NewConfiguration()
	login.Components = []*model.Component{{
		ID:   "login",
		Type: model.TypeForm,
		Children: []*model.Component{
			{ID: "user", Type: model.TypeTextInput, Props: model.Props{"label": "User"}},
			{ID: "pw", Type: model.TypePasswordInput, Props: model.Props{"label": "Password"}},
		},
	}}
	reg := definition.NewRegistry([]model.LayoutDefinition{{Name: "login", Config: login}})

	core, logs := observer.New(zap.DebugLevel)
	m := NewManager(reg, nil, WithLogger(zap.New(core)))
	s, err := m.Create("login")
	if err != nil {
		t.Fatalf("Create(login) error = %v", err)
	}

	_, err = s.Dispatch("login", render.Event{
		Type: render.EventSubmit,
		Data: map[string]any{"values": map[string]any{"user": "ada", "pw": "hunter2"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	entries := logs.FilterMessage("form submitted").All()
	if len(entries) != 1 {
		t.Fatalf("form submitted entries = %d, want 1", len(entries))
	}
	values, _ := entries[0].ContextMap()["values"].(map[string]any)
	if values["pw"] != "[REDACTED]" || values["user"] != "ada" {
		t.Errorf("logged values = %v", values)
	}
}

func TestSession_commandAndRenderSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, s := newLanding(t)
	ctx := context.Background()

	if err := s.Edit(ctx, store.OpDelete, "hero", func(st *store.Store) error {
		return st.DeleteComponent("hero")
	}); err != nil {
		t.Fatal(err)
	}
	_ = s.Edit(ctx, store.OpDelete, "ghost", func(st *store.Store) error {
		return st.DeleteComponent("ghost")
	})
	out, err := s.Render(ctx, "", model.ViewMobile, nil)
	if err != nil {
		t.Fatal(err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("recorded %d spans, want 3", len(spans))
	}
	want := []struct {
		name      string
		component string
		code      codes.Code
	}{
		{"designer.command delete", "hero", codes.Unset},
		{"designer.command delete", "ghost", codes.Error},
		{"designer.render canvas", "", codes.Unset},
	}
	for i, w := range want {
		got := spans[i]
		if got.Name != w.name || got.Status.Code != w.code {
			t.Errorf("span %d = %s %v, want %s %v", i, got.Name, got.Status.Code, w.name, w.code)
		}
		attrs := map[string]string{}
		for _, kv := range got.Attributes {
			attrs[string(kv.Key)] = kv.Value.Emit()
		}
		if attrs[string(observability.AttrSessionID)] != s.ID {
			t.Errorf("span %d session = %q, want %q", i, attrs[string(observability.AttrSessionID)], s.ID)
		}
		if attrs[string(observability.AttrComponentID)] != w.component {
			t.Errorf("span %d component = %q, want %q", i, attrs[string(observability.AttrComponentID)], w.component)
		}
	}
	rattrs := map[string]string{}
	for _, kv := range spans[2].Attributes {
		rattrs[string(kv.Key)] = kv.Value.Emit()
	}
	if rattrs[string(observability.AttrMode)] != model.ModeCanvas || rattrs[string(observability.AttrViewMode)] != model.ViewMobile {
		t.Errorf("render attributes = %v, want canvas on mobile", rattrs)
	}
	if rattrs[string(observability.AttrNodes)] != fmt.Sprint(out.Count()) {
		t.Errorf("render nodes = %s, want %d", rattrs[string(observability.AttrNodes)], out.Count())
	}
}
