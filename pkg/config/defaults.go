package config

import "time"

// Default configuration values.
const (
	// Storage defaults
	DefaultStoragePrimary       = BackendFilesystem
	DefaultStorageRetryAttempts = 3
	DefaultStorageRetryDelay    = time.Second

	// Filesystem backend defaults
	DefaultFilesystemDir = ".ai-tests"

	// SQLite backend defaults
	DefaultSQLitePath         = ".ai-tests/traceforge.db"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteMaxIdleConns = 5
	DefaultSQLiteWALMode      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsNamespace   = "traceforge"
	DefaultMetricsSubsystem   = "storage"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// Default returns a configuration populated with default values.
// Load unmarshals YAML over this struct, so file values override defaults
// and explicit false values for booleans are preserved.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Primary:       DefaultStoragePrimary,
			RetryAttempts: DefaultStorageRetryAttempts,
			RetryDelay:    DefaultStorageRetryDelay,
			Filesystem: FilesystemConfig{
				Dir: DefaultFilesystemDir,
			},
			SQLite: SQLiteConfig{
				Path:         DefaultSQLitePath,
				MaxOpenConns: DefaultSQLiteMaxOpenConns,
				MaxIdleConns: DefaultSQLiteMaxIdleConns,
				WALMode:      DefaultSQLiteWALMode,
				BusyTimeout:  DefaultSQLiteBusyTimeout,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  DefaultLoggingLevel,
				Format: DefaultLoggingFormat,
			},
			Metrics: MetricsConfig{
				Enabled:   DefaultMetricsEnabled,
				Namespace: DefaultMetricsNamespace,
				Subsystem: DefaultMetricsSubsystem,
			},
			Health: HealthConfig{
				CheckTimeout: DefaultHealthCheckTimeout,
			},
		},
	}
}

// ApplyDefaults fills in default values for unset fields of an existing
// configuration. Boolean fields are left as-is: false is indistinguishable
// from unset, so their defaults only take effect through Default.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Primary == "" {
		cfg.Storage.Primary = DefaultStoragePrimary
	}
	if cfg.Storage.RetryAttempts == 0 {
		cfg.Storage.RetryAttempts = DefaultStorageRetryAttempts
	}
	if cfg.Storage.RetryDelay == 0 {
		cfg.Storage.RetryDelay = DefaultStorageRetryDelay
	}

	if cfg.Storage.Filesystem.Dir == "" {
		cfg.Storage.Filesystem.Dir = DefaultFilesystemDir
	}

	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.MaxOpenConns == 0 {
		cfg.Storage.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Storage.SQLite.MaxIdleConns == 0 {
		cfg.Storage.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}

	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
