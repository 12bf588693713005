package trace

import "fmt"

// BackendError represents an error from a concrete storage backend.
type BackendError struct {
	Backend   string // Backend type ("sqlite", "filesystem", "memory")
	Operation string // Operation that failed ("save_trace", "list_tests", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError creates a new BackendError.
func NewBackendError(backend, operation string, cause error) *BackendError {
	return &BackendError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// StorageUnavailableError is returned by the storage manager when a trace
// write has exhausted both primary retries and every configured fallback.
// It carries the record ID and the primary's terminal error.
//
// Test writes intentionally do not use this type: on total exhaustion they
// return the primary's last error unchanged.
type StorageUnavailableError struct {
	RecordID string // ID of the record that could not be persisted
	Cause    error  // Primary backend's terminal error
}

// Error implements the error interface.
func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable [record_id=%s]: all fallbacks exhausted: %v", e.RecordID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageUnavailableError) Unwrap() error {
	return e.Cause
}

// NewStorageUnavailableError creates a new StorageUnavailableError.
func NewStorageUnavailableError(recordID string, cause error) *StorageUnavailableError {
	return &StorageUnavailableError{
		RecordID: recordID,
		Cause:    cause,
	}
}
