package config

import "time"

// Backend names accepted in storage topology configuration.
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
)

// Config is the root configuration structure for the TraceForge storage
// layer.
type Config struct {
	// Storage contains backend topology and retry configuration.
	Storage StorageConfig `yaml:"storage"`

	// Retention contains retention sweep limits and scheduling.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry contains logging, metrics, and health check settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig contains the backend topology and retry policy.
type StorageConfig struct {
	// Primary is the preferred backend: "filesystem", "sqlite", or
	// "memory". Always tried first, with retries.
	// Default: "filesystem"
	Primary string `yaml:"primary"`

	// Fallbacks are tried in order, one attempt each, after primary
	// retry exhaustion on writes. Order defines failover priority.
	// Default: none
	Fallbacks []string `yaml:"fallbacks"`

	// RetryAttempts is the number of attempts against the primary per
	// operation.
	// Default: 3
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the fixed wait between failed attempts.
	// Default: 1s
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Filesystem configures the filesystem backend.
	Filesystem FilesystemConfig `yaml:"filesystem"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// FilesystemConfig contains settings for the filesystem backend.
type FilesystemConfig struct {
	// Dir is the capture directory holding traces/ and tests/.
	// Default: ".ai-tests"
	Dir string `yaml:"dir"`
}

// SQLiteConfig contains settings for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: ".ai-tests/traceforge.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains retention sweep limits and scheduling.
type RetentionConfig struct {
	// MaxAge removes records older than this duration. 0 keeps records
	// forever.
	// Default: 0
	MaxAge time.Duration `yaml:"max_age"`

	// MaxCount keeps at most this many records per kind. 0 means
	// unlimited.
	// Default: 0
	MaxCount int64 `yaml:"max_count"`

	// Schedule is a cron expression for automatic sweeps
	// (e.g., "0 3 * * *" for daily at 3 AM). Empty disables scheduling.
	// Default: ""
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics export.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health configures backend health probing.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log output.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exported.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "traceforge"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "storage"
	Subsystem string `yaml:"subsystem"`
}

// HealthConfig contains health probe settings.
type HealthConfig struct {
	// CheckTimeout bounds each backend liveness probe served over HTTP.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
