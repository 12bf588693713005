package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/traceforge/traceforge/pkg/trace"
)

func newTrace(id, provider, model string, at time.Time) *trace.Trace {
	return &trace.Trace{
		ID:         id,
		Timestamp:  at,
		Provider:   provider,
		Model:      model,
		Request:    json.RawMessage(`{"messages":[]}`),
		Response:   json.RawMessage(`{"choices":[]}`),
		Status:     200,
		DurationMS: 42,
	}
}

func TestMemoryBackend_TraceRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	in := newTrace("t1", "openai", "gpt-4o", time.Now().UTC())
	if err := b.SaveTrace(ctx, in); err != nil {
		t.Fatalf("SaveTrace() failed: %v", err)
	}

	got, err := b.GetTrace(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTrace() failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetTrace() returned nil for a stored record")
	}
	if got.ID != in.ID || got.Provider != in.Provider || got.Model != in.Model {
		t.Errorf("round trip mismatch: got %+v", got)
	}

	// Mutating the stored record must not affect later reads
	in.Provider = "mutated"
	got2, _ := b.GetTrace(ctx, "t1")
	if got2.Provider != "openai" {
		t.Error("backend must store a copy, not alias the caller's record")
	}
}

func TestMemoryBackend_GetTrace_Absent(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()

	got, err := b.GetTrace(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetTrace() failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent record, got %+v", got)
	}
}

func TestMemoryBackend_SaveTrace_Upsert(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	b.SaveTrace(ctx, newTrace("t1", "openai", "gpt-4o", time.Now()))
	b.SaveTrace(ctx, newTrace("t1", "anthropic", "claude-sonnet-4", time.Now()))

	count, _ := b.CountTraces(ctx)
	if count != 1 {
		t.Errorf("re-saving an ID must replace, count = %d", count)
	}
	got, _ := b.GetTrace(ctx, "t1")
	if got.Provider != "anthropic" {
		t.Errorf("expected replaced record, got provider %q", got.Provider)
	}
}

func TestMemoryBackend_ListTraces(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		provider := "openai"
		if i%2 == 1 {
			provider = "anthropic"
		}
		b.SaveTrace(ctx, newTrace(fmt.Sprintf("t%d", i), provider, "m", base.Add(time.Duration(i)*time.Minute)))
	}

	tests := []struct {
		name    string
		opts    *trace.ListOptions
		wantIDs []string
	}{
		{
			name:    "no filters newest first",
			opts:    nil,
			wantIDs: []string{"t4", "t3", "t2", "t1", "t0"},
		},
		{
			name:    "provider filter",
			opts:    &trace.ListOptions{Provider: "anthropic"},
			wantIDs: []string{"t3", "t1"},
		},
		{
			name:    "since filter",
			opts:    &trace.ListOptions{Since: timePtr(base.Add(3 * time.Minute))},
			wantIDs: []string{"t4", "t3"},
		},
		{
			name:    "until filter",
			opts:    &trace.ListOptions{Until: timePtr(base.Add(time.Minute))},
			wantIDs: []string{"t1", "t0"},
		},
		{
			name:    "limit and offset",
			opts:    &trace.ListOptions{Limit: 2, Offset: 1},
			wantIDs: []string{"t3", "t2"},
		},
		{
			name:    "offset beyond results",
			opts:    &trace.ListOptions{Offset: 10},
			wantIDs: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := b.ListTraces(ctx, tc.opts)
			if err != nil {
				t.Fatalf("ListTraces() failed: %v", err)
			}
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("got %d traces, want %d", len(got), len(tc.wantIDs))
			}
			for i, want := range tc.wantIDs {
				if got[i].ID != want {
					t.Errorf("result[%d].ID = %q, want %q", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestMemoryBackend_DeleteTrace_Idempotent(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	b.SaveTrace(ctx, newTrace("t1", "openai", "m", time.Now()))

	if err := b.DeleteTrace(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTrace() failed: %v", err)
	}
	if err := b.DeleteTrace(ctx, "t1"); err != nil {
		t.Fatalf("deleting an absent record must not fail: %v", err)
	}

	count, _ := b.CountTraces(ctx)
	if count != 0 {
		t.Errorf("count after delete = %d, want 0", count)
	}
}

func TestMemoryBackend_TestRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	in := &trace.Test{
		ID:        "test-1",
		Name:      "chat completion happy path",
		TraceID:   "t1",
		Timestamp: time.Now().UTC(),
		Input:     json.RawMessage(`{"prompt":"hi"}`),
		Expected:  json.RawMessage(`{"reply":"hello"}`),
	}
	if err := b.SaveTest(ctx, in); err != nil {
		t.Fatalf("SaveTest() failed: %v", err)
	}

	got, err := b.GetTest(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetTest() failed: %v", err)
	}
	if got == nil || got.Name != in.Name || got.TraceID != in.TraceID {
		t.Errorf("round trip mismatch: got %+v", got)
	}

	absent, err := b.GetTest(ctx, "missing")
	if err != nil || absent != nil {
		t.Errorf("absent test should be (nil, nil), got (%+v, %v)", absent, err)
	}

	if err := b.DeleteTest(ctx, "test-1"); err != nil {
		t.Fatalf("DeleteTest() failed: %v", err)
	}
	gone, _ := b.GetTest(ctx, "test-1")
	if gone != nil {
		t.Error("test should be gone after delete")
	}
}

func TestMemoryBackend_Cleanup(t *testing.T) {
	ctx := context.Background()

	t.Run("max age", func(t *testing.T) {
		b := NewMemoryBackend()
		defer b.Close()

		b.SaveTrace(ctx, newTrace("old", "openai", "m", time.Now().Add(-48*time.Hour)))
		b.SaveTrace(ctx, newTrace("fresh", "openai", "m", time.Now()))
		b.SaveTest(ctx, &trace.Test{ID: "old-test", Timestamp: time.Now().Add(-48 * time.Hour)})

		removed, err := b.Cleanup(ctx, trace.CleanupOptions{MaxAge: 24 * time.Hour})
		if err != nil {
			t.Fatalf("Cleanup() failed: %v", err)
		}
		if removed != 2 {
			t.Errorf("removed = %d, want 2", removed)
		}

		if got, _ := b.GetTrace(ctx, "fresh"); got == nil {
			t.Error("fresh record must survive cleanup")
		}
		if got, _ := b.GetTrace(ctx, "old"); got != nil {
			t.Error("expired record must be removed")
		}
	})

	t.Run("max count keeps newest", func(t *testing.T) {
		b := NewMemoryBackend()
		defer b.Close()

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			b.SaveTrace(ctx, newTrace(fmt.Sprintf("t%d", i), "openai", "m", base.Add(time.Duration(i)*time.Minute)))
		}

		removed, err := b.Cleanup(ctx, trace.CleanupOptions{MaxCount: 2})
		if err != nil {
			t.Fatalf("Cleanup() failed: %v", err)
		}
		if removed != 3 {
			t.Errorf("removed = %d, want 3", removed)
		}

		for _, id := range []string{"t3", "t4"} {
			if got, _ := b.GetTrace(ctx, id); got == nil {
				t.Errorf("newest record %s must survive count pruning", id)
			}
		}
		for _, id := range []string{"t0", "t1", "t2"} {
			if got, _ := b.GetTrace(ctx, id); got != nil {
				t.Errorf("oldest record %s must be pruned", id)
			}
		}
	})

	t.Run("no limits is a no-op", func(t *testing.T) {
		b := NewMemoryBackend()
		defer b.Close()

		b.SaveTrace(ctx, newTrace("t1", "openai", "m", time.Now().Add(-1000*time.Hour)))

		removed, err := b.Cleanup(ctx, trace.CleanupOptions{})
		if err != nil {
			t.Fatalf("Cleanup() failed: %v", err)
		}
		if removed != 0 {
			t.Errorf("removed = %d, want 0", removed)
		}
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
