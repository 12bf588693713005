package trace

import "github.com/google/uuid"

// NewTraceID generates a unique trace record ID.
func NewTraceID() string {
	return "trace_" + uuid.NewString()
}

// NewTestID generates a unique test record ID.
func NewTestID() string {
	return "test_" + uuid.NewString()
}
