package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file at the specified path. Defaults
// are applied first and overridden by file values, so absent keys keep
// their defaults. The result is validated before being returned.
//
// A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// TRACEFORGE_SECTION_FIELD (e.g., TRACEFORGE_STORAGE_PRIMARY) and always
// take precedence over file-based configuration.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies TRACEFORGE_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("TRACEFORGE_STORAGE_PRIMARY"); val != "" {
		cfg.Storage.Primary = val
	}
	if val := os.Getenv("TRACEFORGE_STORAGE_RETRY_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Storage.RetryAttempts = n
		}
	}
	if val := os.Getenv("TRACEFORGE_STORAGE_RETRY_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.RetryDelay = d
		}
	}
	if val := os.Getenv("TRACEFORGE_STORAGE_FILESYSTEM_DIR"); val != "" {
		cfg.Storage.Filesystem.Dir = val
	}
	if val := os.Getenv("TRACEFORGE_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLite.Path = val
	}
	if val := os.Getenv("TRACEFORGE_RETENTION_MAX_AGE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Retention.MaxAge = d
		}
	}
	if val := os.Getenv("TRACEFORGE_RETENTION_MAX_COUNT"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Retention.MaxCount = n
		}
	}
	if val := os.Getenv("TRACEFORGE_RETENTION_SCHEDULE"); val != "" {
		cfg.Retention.Schedule = val
	}
	if val := os.Getenv("TRACEFORGE_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TRACEFORGE_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}
