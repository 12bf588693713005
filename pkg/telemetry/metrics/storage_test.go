package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/traceforge/traceforge/pkg/config"
	"github.com/traceforge/traceforge/pkg/storage"
	"github.com/traceforge/traceforge/pkg/trace"
)

func newTestCollector(t *testing.T, manager *storage.Manager) *StorageCollector {
	t.Helper()
	cfg := config.Default().Telemetry.Metrics
	return NewStorageCollector(&cfg, nil, manager)
}

func newTestManager(primary, fallback trace.Backend) *storage.Manager {
	cfg := storage.ManagerConfig{
		Primary:       primary,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if fallback != nil {
		cfg.Fallbacks = []trace.Backend{fallback}
	}
	return storage.NewManager(cfg)
}

func TestStorageCollector_ReflectsManagerCounters(t *testing.T) {
	manager := newTestManager(storage.NewMemoryBackend(), nil)
	collector := newTestCollector(t, manager)

	ctx := context.Background()
	manager.SaveTrace(ctx, &trace.Trace{ID: "t1", Timestamp: time.Now()})
	manager.SaveTrace(ctx, &trace.Trace{ID: "t2", Timestamp: time.Now()})

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			got[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	if got["traceforge_storage_primary_successes_total"] != 2 {
		t.Errorf("primary successes = %v, want 2", got["traceforge_storage_primary_successes_total"])
	}
	if got["traceforge_storage_primary_failures_total"] != 0 {
		t.Errorf("primary failures = %v, want 0", got["traceforge_storage_primary_failures_total"])
	}
}

func TestStorageCollector_CountsFailover(t *testing.T) {
	primary := &brokenBackend{err: errors.New("down")}
	manager := newTestManager(primary, storage.NewMemoryBackend())
	collector := newTestCollector(t, manager)

	manager.SaveTrace(context.Background(), &trace.Trace{ID: "t1", Timestamp: time.Now()})

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			got[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	if got["traceforge_storage_primary_failures_total"] != 1 {
		t.Errorf("primary failures = %v, want 1", got["traceforge_storage_primary_failures_total"])
	}
	if got["traceforge_storage_fallback_successes_total"] != 1 {
		t.Errorf("fallback successes = %v, want 1", got["traceforge_storage_fallback_successes_total"])
	}
}

func TestStorageCollector_Handler(t *testing.T) {
	manager := newTestManager(storage.NewMemoryBackend(), nil)
	collector := newTestCollector(t, manager)

	manager.SaveTrace(context.Background(), &trace.Trace{ID: "t1", Timestamp: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "traceforge_storage_primary_successes_total 1") {
		t.Errorf("exposition should carry the counter:\n%s", body)
	}
}

// brokenBackend fails every write; reads are unused in these tests.
type brokenBackend struct {
	storage.MemoryBackend
	err error
}

func (b *brokenBackend) SaveTrace(ctx context.Context, t *trace.Trace) error {
	return b.err
}
