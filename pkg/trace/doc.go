// Package trace defines the record types and the storage backend contract
// for TraceForge capture data.
//
// # Records
//
// Two record kinds are persisted:
//
//   - Trace: one captured AI API request/response pair
//   - Test: one test case generated or stored from a trace
//
// Both are treated as opaque payloads by the storage layer; only the unique
// ID matters for routing and retrieval.
//
// # Backend Contract
//
// The Backend interface is the persistence capability set every concrete
// storage implementation satisfies (memory, SQLite, filesystem). The
// resilient storage manager in pkg/storage implements the same interface,
// so callers never need to know whether they hold a single backend or a
// primary-plus-fallbacks topology:
//
//	var store trace.Backend = storage.NewManager(storage.ManagerConfig{
//	    Primary:   primary,
//	    Fallbacks: []trace.Backend{fallback},
//	})
//
// Get operations return (nil, nil) when no record has the given ID; absence
// is not an error.
package trace
