package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/traceforge/traceforge/pkg/trace"
)

// MemoryBackend implements trace.Backend using in-memory maps. It is
// intended for tests and ephemeral capture sessions; nothing survives
// process exit.
type MemoryBackend struct {
	mu     sync.RWMutex
	traces map[string]*trace.Trace
	tests  map[string]*trace.Test
}

var _ trace.Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		traces: make(map[string]*trace.Trace),
		tests:  make(map[string]*trace.Test),
	}
}

// SaveTrace persists a trace record to memory.
func (b *MemoryBackend) SaveTrace(ctx context.Context, t *trace.Trace) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Store a copy to avoid aliasing caller-held records
	cp := *t
	b.traces[t.ID] = &cp
	return nil
}

// GetTrace retrieves a trace by ID, or (nil, nil) if absent.
func (b *MemoryBackend) GetTrace(ctx context.Context, id string) (*trace.Trace, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.traces[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// ListTraces returns traces matching the options, newest first.
func (b *MemoryBackend) ListTraces(ctx context.Context, opts *trace.ListOptions) ([]*trace.Trace, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var results []*trace.Trace
	for _, t := range b.traces {
		if !matchesTrace(t, opts) {
			continue
		}
		cp := *t
		results = append(results, &cp)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	return paginate(results, opts), nil
}

// DeleteTrace removes a trace by ID. Absent records are ignored.
func (b *MemoryBackend) DeleteTrace(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.traces, id)
	return nil
}

// CountTraces returns the number of stored traces.
func (b *MemoryBackend) CountTraces(ctx context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return int64(len(b.traces)), nil
}

// SaveTest persists a test record to memory.
func (b *MemoryBackend) SaveTest(ctx context.Context, t *trace.Test) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := *t
	b.tests[t.ID] = &cp
	return nil
}

// GetTest retrieves a test by ID, or (nil, nil) if absent.
func (b *MemoryBackend) GetTest(ctx context.Context, id string) (*trace.Test, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.tests[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// ListTests returns tests matching the options, newest first.
func (b *MemoryBackend) ListTests(ctx context.Context, opts *trace.ListOptions) ([]*trace.Test, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var results []*trace.Test
	for _, t := range b.tests {
		if !matchesTest(t, opts) {
			continue
		}
		cp := *t
		results = append(results, &cp)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	return paginate(results, opts), nil
}

// DeleteTest removes a test by ID. Absent records are ignored.
func (b *MemoryBackend) DeleteTest(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.tests, id)
	return nil
}

// Cleanup removes records exceeding the age or count limits and returns
// the number removed across both record kinds.
func (b *MemoryBackend) Cleanup(ctx context.Context, opts trace.CleanupOptions) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int64

	if opts.MaxAge > 0 {
		cutoff := time.Now().Add(-opts.MaxAge)
		for id, t := range b.traces {
			if t.Timestamp.Before(cutoff) {
				delete(b.traces, id)
				removed++
			}
		}
		for id, t := range b.tests {
			if t.Timestamp.Before(cutoff) {
				delete(b.tests, id)
				removed++
			}
		}
	}

	if opts.MaxCount > 0 {
		removed += pruneOldest(b.traces, opts.MaxCount, func(t *trace.Trace) time.Time { return t.Timestamp })
		removed += pruneOldest(b.tests, opts.MaxCount, func(t *trace.Test) time.Time { return t.Timestamp })
	}

	return removed, nil
}

// Close releases the backing maps.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.traces = make(map[string]*trace.Trace)
	b.tests = make(map[string]*trace.Test)
	return nil
}

// pruneOldest deletes the oldest records until at most max remain.
func pruneOldest[T any](records map[string]T, max int64, ts func(T) time.Time) int64 {
	excess := int64(len(records)) - max
	if excess <= 0 {
		return 0
	}

	type entry struct {
		id string
		at time.Time
	}
	entries := make([]entry, 0, len(records))
	for id, r := range records {
		entries = append(entries, entry{id: id, at: ts(r)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})

	for i := int64(0); i < excess; i++ {
		delete(records, entries[i].id)
	}
	return excess
}

// paginate applies offset and limit to a filtered result set.
func paginate[T any](results []T, opts *trace.ListOptions) []T {
	if opts == nil {
		return results
	}

	start := opts.Offset
	if start > len(results) {
		return nil
	}
	results = results[start:]

	if opts.Limit > 0 && opts.Limit < len(results) {
		results = results[:opts.Limit]
	}
	return results
}

// matchesTrace checks a trace against the list filters.
func matchesTrace(t *trace.Trace, opts *trace.ListOptions) bool {
	if opts == nil {
		return true
	}
	if opts.Provider != "" && t.Provider != opts.Provider {
		return false
	}
	if opts.Model != "" && t.Model != opts.Model {
		return false
	}
	if opts.Since != nil && t.Timestamp.Before(*opts.Since) {
		return false
	}
	if opts.Until != nil && t.Timestamp.After(*opts.Until) {
		return false
	}
	return true
}

// matchesTest checks a test against the list filters. Provider and model
// filters do not apply to tests.
func matchesTest(t *trace.Test, opts *trace.ListOptions) bool {
	if opts == nil {
		return true
	}
	if opts.Since != nil && t.Timestamp.Before(*opts.Since) {
		return false
	}
	if opts.Until != nil && t.Timestamp.After(*opts.Until) {
		return false
	}
	return true
}
