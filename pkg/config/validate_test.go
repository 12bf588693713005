package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "full topology",
			mutate: func(c *Config) {
				c.Storage.Primary = BackendSQLite
				c.Storage.Fallbacks = []string{BackendFilesystem, BackendMemory}
			},
		},
		{
			name:    "unknown primary",
			mutate:  func(c *Config) { c.Storage.Primary = "postgres" },
			wantErr: "storage.primary",
		},
		{
			name:    "unknown fallback",
			mutate:  func(c *Config) { c.Storage.Fallbacks = []string{"postgres"} },
			wantErr: "storage.fallbacks[0]",
		},
		{
			name:    "fallback duplicates primary",
			mutate:  func(c *Config) { c.Storage.Fallbacks = []string{BackendFilesystem} },
			wantErr: "already the primary",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *Config) { c.Storage.RetryAttempts = 0 },
			wantErr: "retry_attempts",
		},
		{
			name:    "negative retry delay",
			mutate:  func(c *Config) { c.Storage.RetryDelay = -time.Second },
			wantErr: "retry_delay",
		},
		{
			name:    "zero max open conns",
			mutate:  func(c *Config) { c.Storage.SQLite.MaxOpenConns = 0 },
			wantErr: "max_open_conns",
		},
		{
			name:    "negative retention age",
			mutate:  func(c *Config) { c.Retention.MaxAge = -time.Hour },
			wantErr: "max_age",
		},
		{
			name:    "negative retention count",
			mutate:  func(c *Config) { c.Retention.MaxCount = -1 },
			wantErr: "max_count",
		},
		{
			name:   "valid cron schedule",
			mutate: func(c *Config) { c.Retention.Schedule = "*/15 * * * *" },
		},
		{
			name:    "invalid cron schedule",
			mutate:  func(c *Config) { c.Retention.Schedule = "every day at noon" },
			wantErr: "retention.schedule",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Telemetry.Logging.Format = "logfmt" },
			wantErr: "logging.format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() should fail with %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Storage.Primary != DefaultStoragePrimary {
		t.Errorf("primary = %q, want %q", cfg.Storage.Primary, DefaultStoragePrimary)
	}
	if cfg.Storage.RetryAttempts != DefaultStorageRetryAttempts {
		t.Errorf("retry attempts = %d, want %d", cfg.Storage.RetryAttempts, DefaultStorageRetryAttempts)
	}
	if cfg.Storage.SQLite.BusyTimeout != DefaultSQLiteBusyTimeout {
		t.Errorf("busy timeout = %s, want %s", cfg.Storage.SQLite.BusyTimeout, DefaultSQLiteBusyTimeout)
	}
	if cfg.Telemetry.Health.CheckTimeout != DefaultHealthCheckTimeout {
		t.Errorf("check timeout = %s, want %s", cfg.Telemetry.Health.CheckTimeout, DefaultHealthCheckTimeout)
	}

	// Set fields are left alone
	cfg2 := &Config{}
	cfg2.Storage.Primary = BackendMemory
	ApplyDefaults(cfg2)
	if cfg2.Storage.Primary != BackendMemory {
		t.Errorf("ApplyDefaults must not overwrite set fields, got %q", cfg2.Storage.Primary)
	}
}
