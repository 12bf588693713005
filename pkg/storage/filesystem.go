package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/traceforge/traceforge/pkg/trace"
)

// FilesystemConfig contains configuration for the filesystem backend.
type FilesystemConfig struct {
	// Dir is the capture directory. Traces are stored under Dir/traces,
	// tests under Dir/tests, one JSON file per record.
	// Default: ".ai-tests"
	Dir string
}

// DefaultFilesystemConfig returns the default filesystem configuration.
func DefaultFilesystemConfig() *FilesystemConfig {
	return &FilesystemConfig{Dir: ".ai-tests"}
}

// FilesystemBackend implements trace.Backend with one JSON file per record
// under a capture directory. It is the zero-infrastructure backend: records
// are plain files a developer can inspect and commit.
type FilesystemBackend struct {
	tracesDir string
	testsDir  string
}

var _ trace.Backend = (*FilesystemBackend)(nil)

// NewFilesystemBackend creates a filesystem storage backend rooted at the
// configured capture directory, creating it if needed.
func NewFilesystemBackend(config *FilesystemConfig) (*FilesystemBackend, error) {
	if config == nil {
		config = DefaultFilesystemConfig()
	}

	b := &FilesystemBackend{
		tracesDir: filepath.Join(config.Dir, "traces"),
		testsDir:  filepath.Join(config.Dir, "tests"),
	}

	for _, dir := range []string{b.tracesDir, b.testsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, trace.NewBackendError("filesystem", "mkdir", err)
		}
	}

	return b, nil
}

// SaveTrace persists a trace as Dir/traces/<id>.json.
func (b *FilesystemBackend) SaveTrace(ctx context.Context, t *trace.Trace) error {
	return b.writeRecord(b.tracesDir, t.ID, "save_trace", t)
}

// GetTrace retrieves a trace by ID, or (nil, nil) if absent.
func (b *FilesystemBackend) GetTrace(ctx context.Context, id string) (*trace.Trace, error) {
	var t trace.Trace
	found, err := b.readRecord(b.tracesDir, id, "get_trace", &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

// ListTraces returns traces matching the options, newest first.
func (b *FilesystemBackend) ListTraces(ctx context.Context, opts *trace.ListOptions) ([]*trace.Trace, error) {
	paths, err := b.recordPaths(b.tracesDir, "list_traces")
	if err != nil {
		return nil, err
	}

	var results []*trace.Trace
	for _, path := range paths {
		var t trace.Trace
		if err := readJSONFile(path, &t); err != nil {
			return nil, trace.NewBackendError("filesystem", "list_traces", err)
		}
		if matchesTrace(&t, opts) {
			cp := t
			results = append(results, &cp)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	return paginate(results, opts), nil
}

// DeleteTrace removes a trace by ID. Absent records are ignored.
func (b *FilesystemBackend) DeleteTrace(ctx context.Context, id string) error {
	return b.deleteRecord(b.tracesDir, id, "delete_trace")
}

// CountTraces returns the number of stored traces.
func (b *FilesystemBackend) CountTraces(ctx context.Context) (int64, error) {
	paths, err := b.recordPaths(b.tracesDir, "count_traces")
	if err != nil {
		return 0, err
	}
	return int64(len(paths)), nil
}

// SaveTest persists a test as Dir/tests/<id>.json.
func (b *FilesystemBackend) SaveTest(ctx context.Context, t *trace.Test) error {
	return b.writeRecord(b.testsDir, t.ID, "save_test", t)
}

// GetTest retrieves a test by ID, or (nil, nil) if absent.
func (b *FilesystemBackend) GetTest(ctx context.Context, id string) (*trace.Test, error) {
	var t trace.Test
	found, err := b.readRecord(b.testsDir, id, "get_test", &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

// ListTests returns tests matching the options, newest first.
func (b *FilesystemBackend) ListTests(ctx context.Context, opts *trace.ListOptions) ([]*trace.Test, error) {
	paths, err := b.recordPaths(b.testsDir, "list_tests")
	if err != nil {
		return nil, err
	}

	var results []*trace.Test
	for _, path := range paths {
		var t trace.Test
		if err := readJSONFile(path, &t); err != nil {
			return nil, trace.NewBackendError("filesystem", "list_tests", err)
		}
		if matchesTest(&t, opts) {
			cp := t
			results = append(results, &cp)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	return paginate(results, opts), nil
}

// DeleteTest removes a test by ID. Absent records are ignored.
func (b *FilesystemBackend) DeleteTest(ctx context.Context, id string) error {
	return b.deleteRecord(b.testsDir, id, "delete_test")
}

// Cleanup removes record files exceeding the age or count limits and
// returns the number removed across both record kinds.
func (b *FilesystemBackend) Cleanup(ctx context.Context, opts trace.CleanupOptions) (int64, error) {
	var removed int64

	for _, dir := range []string{b.tracesDir, b.testsDir} {
		n, err := b.cleanupDir(dir, opts)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Close is a no-op; the backend holds no open resources between calls.
func (b *FilesystemBackend) Close() error {
	return nil
}

// cleanupDir applies retention limits to one record directory.
func (b *FilesystemBackend) cleanupDir(dir string, opts trace.CleanupOptions) (int64, error) {
	paths, err := b.recordPaths(dir, "cleanup")
	if err != nil {
		return 0, err
	}

	type entry struct {
		path string
		at   time.Time
	}
	entries := make([]entry, 0, len(paths))
	for _, path := range paths {
		var meta struct {
			Timestamp time.Time `json:"timestamp"`
		}
		if err := readJSONFile(path, &meta); err != nil {
			return 0, trace.NewBackendError("filesystem", "cleanup", err)
		}
		entries = append(entries, entry{path: path, at: meta.Timestamp})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})

	var removed int64

	if opts.MaxAge > 0 {
		cutoff := time.Now().Add(-opts.MaxAge)
		kept := entries[:0]
		for _, e := range entries {
			if e.at.Before(cutoff) {
				if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
					return removed, trace.NewBackendError("filesystem", "cleanup", err)
				}
				removed++
				continue
			}
			kept = append(kept, e)
		}
		entries = kept
	}

	if opts.MaxCount > 0 {
		excess := int64(len(entries)) - opts.MaxCount
		for i := int64(0); i < excess; i++ {
			if err := os.Remove(entries[i].path); err != nil && !os.IsNotExist(err) {
				return removed, trace.NewBackendError("filesystem", "cleanup", err)
			}
			removed++
		}
	}

	return removed, nil
}

// recordPath resolves the file path for a record ID, rejecting IDs that
// would escape the record directory.
func (b *FilesystemBackend) recordPath(dir, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid record id %q", id)
	}
	return filepath.Join(dir, id+".json"), nil
}

// recordPaths lists the record files in a directory.
func (b *FilesystemBackend) recordPaths(dir, operation string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, trace.NewBackendError("filesystem", operation, err)
	}

	var paths []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// writeRecord marshals a record and writes it atomically via temp-and-rename.
func (b *FilesystemBackend) writeRecord(dir, id, operation string, record any) error {
	path, err := b.recordPath(dir, id)
	if err != nil {
		return trace.NewBackendError("filesystem", operation, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return trace.NewBackendError("filesystem", operation, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return trace.NewBackendError("filesystem", operation, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return trace.NewBackendError("filesystem", operation, err)
	}
	return nil
}

// readRecord reads a record by ID. Returns false with a nil error when the
// record file does not exist.
func (b *FilesystemBackend) readRecord(dir, id, operation string, record any) (bool, error) {
	path, err := b.recordPath(dir, id)
	if err != nil {
		return false, trace.NewBackendError("filesystem", operation, err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, trace.NewBackendError("filesystem", operation, err)
	}

	if err := json.Unmarshal(data, record); err != nil {
		return false, trace.NewBackendError("filesystem", operation, err)
	}
	return true, nil
}

// deleteRecord removes a record file, ignoring absent records.
func (b *FilesystemBackend) deleteRecord(dir, id, operation string) error {
	path, err := b.recordPath(dir, id)
	if err != nil {
		return trace.NewBackendError("filesystem", operation, err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return trace.NewBackendError("filesystem", operation, err)
	}
	return nil
}

// readJSONFile reads and unmarshals one JSON file.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
