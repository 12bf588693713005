package trace

import (
	"context"
	"encoding/json"
	"time"
)

// Trace represents a single captured AI API request/response pair. The
// request and response bodies are stored verbatim as raw JSON; the storage
// layer never inspects them.
type Trace struct {
	// ID uniquely identifies the trace.
	ID string `json:"id"`

	// Timestamp is when the request was captured by the proxy.
	Timestamp time.Time `json:"timestamp"`

	// Provider is the upstream API the request was routed to
	// (e.g., "openai", "anthropic").
	Provider string `json:"provider,omitempty"`

	// Model is the model name extracted from the request, if any.
	Model string `json:"model,omitempty"`

	// Request is the captured request body.
	Request json.RawMessage `json:"request,omitempty"`

	// Response is the captured response body. For streaming responses this
	// is the reassembled payload.
	Response json.RawMessage `json:"response,omitempty"`

	// Status is the upstream HTTP status code.
	Status int `json:"status,omitempty"`

	// DurationMS is the upstream round-trip time in milliseconds.
	DurationMS int64 `json:"duration_ms,omitempty"`

	// Stream indicates the response was delivered as an event stream.
	Stream bool `json:"stream,omitempty"`

	// Error holds the capture error message if the request failed.
	Error string `json:"error,omitempty"`
}

// Test represents a stored test case, usually generated from a captured
// trace. Structurally parallel to Trace: an ID plus opaque payload fields.
type Test struct {
	// ID uniquely identifies the test.
	ID string `json:"id"`

	// Name is a human-readable test name.
	Name string `json:"name,omitempty"`

	// TraceID references the trace this test was generated from, if any.
	TraceID string `json:"trace_id,omitempty"`

	// Timestamp is when the test was created.
	Timestamp time.Time `json:"timestamp"`

	// Input is the test input payload.
	Input json.RawMessage `json:"input,omitempty"`

	// Expected is the expected output payload.
	Expected json.RawMessage `json:"expected,omitempty"`
}

// ListOptions defines filter and pagination parameters for list operations.
// Backends apply the filters they support and ignore the rest; the storage
// manager forwards options verbatim.
type ListOptions struct {
	// Provider filters records by provider name.
	Provider string `json:"provider,omitempty"`

	// Model filters records by model name.
	Model string `json:"model,omitempty"`

	// Since restricts results to records captured at or after this time.
	Since *time.Time `json:"since,omitempty"`

	// Until restricts results to records captured at or before this time.
	Until *time.Time `json:"until,omitempty"`

	// Limit is the maximum number of records to return. 0 means unlimited.
	Limit int `json:"limit,omitempty"`

	// Offset skips the first N matching records.
	Offset int `json:"offset,omitempty"`
}

// CleanupOptions defines retention limits for a backend cleanup sweep.
type CleanupOptions struct {
	// MaxAge removes records older than this duration. 0 disables
	// age-based cleanup.
	MaxAge time.Duration `json:"max_age,omitempty"`

	// MaxCount keeps at most this many records per kind, removing the
	// oldest first. 0 disables count-based cleanup.
	MaxCount int64 `json:"max_count,omitempty"`
}

// Backend is the persistence capability set for trace and test records.
// Implementations must be safe for concurrent use.
//
// Get operations return (nil, nil) when no record has the given ID, so
// absence is distinguishable from a backend failure.
type Backend interface {
	// SaveTrace persists a trace record.
	SaveTrace(ctx context.Context, t *Trace) error

	// GetTrace retrieves a trace by ID, or (nil, nil) if absent.
	GetTrace(ctx context.Context, id string) (*Trace, error)

	// ListTraces returns traces matching the options.
	ListTraces(ctx context.Context, opts *ListOptions) ([]*Trace, error)

	// DeleteTrace removes a trace by ID. Deleting an absent record is not
	// an error.
	DeleteTrace(ctx context.Context, id string) error

	// CountTraces returns the total number of stored traces.
	CountTraces(ctx context.Context) (int64, error)

	// SaveTest persists a test record.
	SaveTest(ctx context.Context, t *Test) error

	// GetTest retrieves a test by ID, or (nil, nil) if absent.
	GetTest(ctx context.Context, id string) (*Test, error)

	// ListTests returns tests matching the options.
	ListTests(ctx context.Context, opts *ListOptions) ([]*Test, error)

	// DeleteTest removes a test by ID. Deleting an absent record is not
	// an error.
	DeleteTest(ctx context.Context, id string) error

	// Cleanup applies retention limits to both record kinds and returns
	// the number of records removed.
	Cleanup(ctx context.Context, opts CleanupOptions) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}
