package integration

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pitabwire/designer/model"
)

func copyLayout(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(testdataDir(), "layouts", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func (h *TestHarness) templateNames(t *testing.T) map[string]bool {
	t.Helper()
	var body struct {
		Data []model.LayoutSummary `json:"data"`
	}
	h.AssertJSON(t, h.GET("/designer/templates"), http.StatusOK, &body)
	names := make(map[string]bool, len(body.Data))
	for _, s := range body.Data {
		names[s.Name] = true
	}
	return names
}

func TestReload_NewTemplateBecomesAvailable(t *testing.T) {
	dir := t.TempDir()
	copyLayout(t, dir, "landing.json")

	h := NewTestHarness(t, WithLayouts(dir), WithHotReload())
	if names := h.templateNames(t); len(names) != 1 {
		t.Fatalf("templates before reload = %v", names)
	}

	pricing := `{"components":[{"id":"tiers","type":"text","props":{"content":"Pricing"}}],"metadata":{"title":"Pricing"}}`
	if err := os.WriteFile(filepath.Join(dir, "pricing.json"), []byte(pricing), 0o644); err != nil {
		t.Fatalf("write layout: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !h.templateNames(t)["pricing"] {
		if time.Now().After(deadline) {
			t.Fatal("pricing template never appeared")
		}
		time.Sleep(20 * time.Millisecond)
	}

	h.NewSession("pricing")
	if got := testutil.ToFloat64(h.Metrics.DefinitionsLoaded); got != 2 {
		t.Errorf("definitions loaded = %v, want 2", got)
	}
}

func TestReload_BrokenFileKeepsPreviousTemplates(t *testing.T) {
	dir := t.TempDir()
	copyLayout(t, dir, "landing.json")

	h := NewTestHarness(t, WithLayouts(dir), WithHotReload())

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"components": [`), 0o644); err != nil {
		t.Fatalf("write layout: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(h.Metrics.DefinitionReloadTotal.WithLabelValues("error")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("failed reload was never recorded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	names := h.templateNames(t)
	if len(names) != 1 || !names["landing"] {
		t.Errorf("templates after failed reload = %v, want landing only", names)
	}
	h.NewSession("landing")
}
