// Package storage provides resilient persistence for TraceForge capture
// data: a storage manager that wraps a primary backend and ordered
// fallbacks behind the trace.Backend interface, plus the concrete backends
// it manages.
//
// # Manager
//
// The Manager is the component the rest of the tool talks to. It adds
// three behaviors on top of a plain backend:
//
//   - Retry: every primary call is attempted up to a configured number of
//     times with a fixed delay between attempts.
//   - Failover: writes that exhaust primary retries are offered to each
//     fallback backend in order, one attempt each. Reads never fail over;
//     fallbacks may hold a stale subset of the data, and serving reads from
//     them would silently disagree with what writes reported.
//   - Accounting: four counters (primary/fallback successes and failures)
//     and a composite health check over the whole topology.
//
// Maintenance operations behave differently from writes: delete, cleanup,
// and close are applied to every backend best-effort, with per-backend
// failures logged and never returned.
//
// # Backends
//
// Three backends are provided:
//
//   - FilesystemBackend: one JSON file per record under a capture
//     directory (default .ai-tests/), inspectable and committable.
//   - SQLiteBackend: embedded database, WAL mode, pure-Go driver by
//     default or cgo driver with -tags sqlite_cgo.
//   - MemoryBackend: in-memory maps for tests and ephemeral sessions.
//
// # Usage
//
//	primary, err := storage.NewSQLiteBackend(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fallback, err := storage.NewFilesystemBackend(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mgr := storage.NewManager(storage.ManagerConfig{
//	    Primary:   primary,
//	    Fallbacks: []trace.Backend{fallback},
//	})
//	defer mgr.Close()
//
//	err = mgr.SaveTrace(ctx, &trace.Trace{ID: trace.NewTraceID()})
//
// NewManagerFromConfig assembles the same topology from a config.Config.
package storage
