package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pitabwire/designer/internal/observability"
	"github.com/pitabwire/designer/model"
)

func TestInstrumented_recordsOperations(t *testing.T) {
	m := observability.InitMetrics(prometheus.NewRegistry())
	store := Instrument(NewMemoryStore(), BackendMemory, m, nil)
	ctx := context.Background()

	if err := store.Save(ctx, "landing", testConfig("Landing")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "landing"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "missing"); err == nil {
		t.Fatal("Load(missing) should fail")
	}

	if got := testutil.ToFloat64(m.PersistenceOpsTotal.WithLabelValues("memory", "save", "success")); got != 1 {
		t.Errorf("save success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PersistenceOpsTotal.WithLabelValues("memory", "load", "success")); got != 1 {
		t.Errorf("load success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PersistenceOpsTotal.WithLabelValues("memory", "load", "error")); got != 1 {
		t.Errorf("load error = %v, want 1", got)
	}
}

type recorderFunc func(backend, op string, err error, d time.Duration)

func (f recorderFunc) RecordPersistence(backend, op string, err error, d time.Duration) {
	f(backend, op, err, d)
}

func TestInstrumented_passesErrorsThrough(t *testing.T) {
	var ops []string
	rec := recorderFunc(func(_, op string, _ error, _ time.Duration) { ops = append(ops, op) })
	store := Instrument(NewMemoryStore(), BackendMemory, rec, nil)

	err := store.Save(context.Background(), "", testConfig("x"))
	if !model.HasCode(err, model.ErrBadRequest) {
		t.Errorf("Save(empty key) = %v, want BAD_REQUEST", err)
	}
	if _, err := store.Keys(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	want := []string{"save", "keys", "delete"}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("ops[%d] = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestInstrumented_HealthCheck(t *testing.T) {
	pool := newFakePool()
	pool.pingErr = errors.New("pg down")
	store := Instrument(NewPgStore(pool), BackendPostgres, nil, nil)

	if err := store.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should delegate to the wrapped store")
	}
	if store.Backend() != BackendPostgres {
		t.Errorf("Backend() = %q, want postgres", store.Backend())
	}
}
