package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// validBackends is the set of recognized backend names.
var validBackends = map[string]bool{
	BackendFilesystem: true,
	BackendSQLite:     true,
	BackendMemory:     true,
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	if !validBackends[cfg.Storage.Primary] {
		return fmt.Errorf("storage.primary: unknown backend %q", cfg.Storage.Primary)
	}

	for i, name := range cfg.Storage.Fallbacks {
		if !validBackends[name] {
			return fmt.Errorf("storage.fallbacks[%d]: unknown backend %q", i, name)
		}
		if name == cfg.Storage.Primary {
			return fmt.Errorf("storage.fallbacks[%d]: backend %q is already the primary", i, name)
		}
	}

	if cfg.Storage.RetryAttempts < 1 {
		return fmt.Errorf("storage.retry_attempts: must be at least 1, got %d", cfg.Storage.RetryAttempts)
	}
	if cfg.Storage.RetryDelay < 0 {
		return fmt.Errorf("storage.retry_delay: must not be negative, got %s", cfg.Storage.RetryDelay)
	}

	if cfg.Storage.SQLite.MaxOpenConns < 1 {
		return fmt.Errorf("storage.sqlite.max_open_conns: must be at least 1, got %d", cfg.Storage.SQLite.MaxOpenConns)
	}
	if cfg.Storage.SQLite.MaxIdleConns < 0 {
		return fmt.Errorf("storage.sqlite.max_idle_conns: must not be negative, got %d", cfg.Storage.SQLite.MaxIdleConns)
	}

	if cfg.Retention.MaxAge < 0 {
		return fmt.Errorf("retention.max_age: must not be negative, got %s", cfg.Retention.MaxAge)
	}
	if cfg.Retention.MaxCount < 0 {
		return fmt.Errorf("retention.max_count: must not be negative, got %d", cfg.Retention.MaxCount)
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("retention.schedule: invalid cron expression %q: %w", cfg.Retention.Schedule, err)
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level: unknown level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format: unknown format %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}
