package storage

import (
	"fmt"
	"log/slog"

	"github.com/traceforge/traceforge/pkg/config"
	"github.com/traceforge/traceforge/pkg/trace"
)

// NewManagerFromConfig builds the configured backend topology and wraps it
// in a Manager. Backends are constructed in configuration order: primary
// first, then each fallback. If any backend fails to construct, the ones
// already opened are closed and the error is returned.
func NewManagerFromConfig(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	primary, err := newBackend(cfg.Storage.Primary, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary backend %q: %w", cfg.Storage.Primary, err)
	}

	var fallbacks []trace.Backend
	for _, name := range cfg.Storage.Fallbacks {
		fb, err := newBackend(name, cfg)
		if err != nil {
			primary.Close()
			for _, opened := range fallbacks {
				opened.Close()
			}
			return nil, fmt.Errorf("failed to create fallback backend %q: %w", name, err)
		}
		fallbacks = append(fallbacks, fb)
	}

	return NewManager(ManagerConfig{
		Primary:       primary,
		Fallbacks:     fallbacks,
		RetryAttempts: cfg.Storage.RetryAttempts,
		RetryDelay:    cfg.Storage.RetryDelay,
		Logger:        logger,
	}), nil
}

// newBackend constructs a single backend by name.
func newBackend(name string, cfg *config.Config) (trace.Backend, error) {
	switch name {
	case config.BackendFilesystem:
		return NewFilesystemBackend(&FilesystemConfig{
			Dir: cfg.Storage.Filesystem.Dir,
		})
	case config.BackendSQLite:
		return NewSQLiteBackend(&SQLiteConfig{
			Path:         cfg.Storage.SQLite.Path,
			MaxOpenConns: cfg.Storage.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Storage.SQLite.MaxIdleConns,
			WALMode:      cfg.Storage.SQLite.WALMode,
			BusyTimeout:  cfg.Storage.SQLite.BusyTimeout,
		})
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
