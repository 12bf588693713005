// Package config provides YAML-based configuration for the TraceForge
// storage layer: backend topology (primary plus ordered fallbacks), retry
// policy, per-backend settings, retention limits, and telemetry.
//
// Configuration is loaded from a YAML file, filled in with defaults,
// validated, and optionally overridden by TRACEFORGE_* environment
// variables. A file watcher is available for hot reload.
//
//	cfg, err := config.Load("traceforge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
