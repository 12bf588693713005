package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traceforge.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  primary: filesystem\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}

	reloaded := make(chan *Config, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("storage:\n  primary: memory\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Storage.Primary != BackendMemory {
			t.Errorf("reloaded primary = %q, want memory", cfg.Storage.Primary)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := <-watchErr; err != nil {
		t.Fatalf("Watch() returned error: %v", err)
	}
}

func TestWatcher_InvalidReloadKeepsPreviousConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traceforge.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  primary: filesystem\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		w.Watch(ctx, func(cfg *Config) { reloaded <- cfg })
	}()
	time.Sleep(50 * time.Millisecond)

	// A file that fails validation must not reach the callback
	if err := os.WriteFile(path, []byte("storage:\n  primary: postgres\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid configuration must be dropped, got %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}

	// A later valid write still gets through
	if err := os.WriteFile(path, []byte("storage:\n  primary: sqlite\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Storage.Primary != BackendSQLite {
			t.Errorf("reloaded primary = %q, want sqlite", cfg.Storage.Primary)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the valid reload")
	}
}

func TestWatcher_StartTwiceFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traceforge.yaml")

	w, err := NewWatcher(path, 0, nil)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Watch(ctx, func(*Config) {})
	time.Sleep(50 * time.Millisecond)

	if err := w.Watch(ctx, func(*Config) {}); err == nil {
		t.Error("a second concurrent Watch must be rejected")
	}
}
