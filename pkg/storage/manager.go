package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/traceforge/traceforge/pkg/trace"
)

const (
	// DefaultRetryAttempts is the number of attempts made against the
	// primary backend before failing over.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the fixed wait between retry attempts.
	DefaultRetryDelay = time.Second
)

// Backend health status values reported by Manager.HealthCheck.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Metrics holds the manager's failover counters. Counters increment
// monotonically on the write path and reset only via ResetMetrics.
type Metrics struct {
	PrimarySuccesses  int64 `json:"primary_successes"`
	PrimaryFailures   int64 `json:"primary_failures"`
	FallbackSuccesses int64 `json:"fallback_successes"`
	FallbackFailures  int64 `json:"fallback_failures"`
}

// HealthStatus is the composite liveness report for a manager's backend
// topology. Fallbacks is ordered to match the configured fallback order.
type HealthStatus struct {
	Primary   string   `json:"primary"`
	Fallbacks []string `json:"fallbacks"`
}

// ManagerConfig contains configuration for a storage Manager.
type ManagerConfig struct {
	// Primary is the preferred backend, always tried first with retries.
	// Required.
	Primary trace.Backend

	// Fallbacks are tried in order, one attempt each, after primary
	// retry exhaustion on writes. Default: none.
	Fallbacks []trace.Backend

	// RetryAttempts is the number of attempts against the primary per
	// operation. Default: 3.
	RetryAttempts int

	// RetryDelay is the fixed wait between failed attempts. There is no
	// backoff. Default: 1s.
	RetryDelay time.Duration

	// Logger receives structured failover and failure events.
	// Default: slog.Default().
	Logger *slog.Logger
}

// Manager wraps a primary backend and zero or more fallbacks behind the
// trace.Backend interface, adding retry, failover, metrics, and health
// reporting. It holds no record data itself; everything persisted lives in
// the wrapped backends.
//
// Writes retry the primary with a fixed delay, then fail over to each
// fallback in order. Reads are served from the primary only: fallbacks may
// be stale or partial, and reading from them would silently diverge from
// what writes reported. Maintenance operations (delete, cleanup, close) are
// best-effort across every backend and never return an error.
//
// The manager applies no per-call timeout and no circuit breaker; a
// chronically failing primary is retried on every call. Callers that need
// time-boxing must arrange it in the backend implementation.
type Manager struct {
	primary       trace.Backend
	fallbacks     []trace.Backend
	retryAttempts int
	retryDelay    time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// Manager is substitutable anywhere a single backend is expected.
var _ trace.Backend = (*Manager)(nil)

// NewManager creates a storage manager for the given topology.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	return &Manager{
		primary:       cfg.Primary,
		fallbacks:     cfg.Fallbacks,
		retryAttempts: attempts,
		retryDelay:    delay,
		logger:        logger.With("component", "storage.manager"),
	}
}

// withRetry invokes op up to retryAttempts times, sleeping retryDelay
// between failed attempts (not after the last). Returns nil on the first
// success, otherwise the last observed error. Every primary-backend call
// goes through this wrapper; there is no per-operation tuning.
func (m *Manager) withRetry(operation string, op func() error) error {
	var lastErr error

	for attempt := 1; attempt <= m.retryAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt < m.retryAttempts {
			m.logger.Debug("primary backend attempt failed, retrying",
				"operation", operation,
				"attempt", attempt,
				"max_attempts", m.retryAttempts,
				"retry_delay", m.retryDelay,
				"error", err,
			)
			time.Sleep(m.retryDelay)
		}
	}

	return lastErr
}

// SaveTrace persists a trace, preferring the primary backend. If primary
// retries are exhausted, each fallback is tried once in order. When every
// backend has failed the returned error is a *trace.StorageUnavailableError
// carrying the record ID and the primary's terminal error.
func (m *Manager) SaveTrace(ctx context.Context, t *trace.Trace) error {
	primaryErr := m.withRetry("save_trace", func() error {
		return m.primary.SaveTrace(ctx, t)
	})
	if primaryErr == nil {
		m.incr(func(mt *Metrics) { mt.PrimarySuccesses++ })
		return nil
	}

	m.incr(func(mt *Metrics) { mt.PrimaryFailures++ })
	m.logger.Warn("primary backend failed to save trace, trying fallbacks",
		"trace_id", t.ID,
		"fallback_count", len(m.fallbacks),
		"error", primaryErr,
	)

	for i, fb := range m.fallbacks {
		if err := fb.SaveTrace(ctx, t); err != nil {
			m.incr(func(mt *Metrics) { mt.FallbackFailures++ })
			m.logger.Warn("fallback backend failed to save trace",
				"trace_id", t.ID,
				"fallback_index", i,
				"error", err,
			)
			continue
		}

		m.incr(func(mt *Metrics) { mt.FallbackSuccesses++ })
		m.logger.Info("trace saved to fallback backend",
			"trace_id", t.ID,
			"fallback_index", i,
		)
		return nil
	}

	m.logger.Error("all storage backends exhausted saving trace",
		"trace_id", t.ID,
		"error", primaryErr,
	)
	return trace.NewStorageUnavailableError(t.ID, primaryErr)
}

// SaveTest persists a test with the same retry and failover behavior as
// SaveTrace, except that on total exhaustion the primary's last error is
// returned unchanged rather than wrapped.
func (m *Manager) SaveTest(ctx context.Context, t *trace.Test) error {
	primaryErr := m.withRetry("save_test", func() error {
		return m.primary.SaveTest(ctx, t)
	})
	if primaryErr == nil {
		m.incr(func(mt *Metrics) { mt.PrimarySuccesses++ })
		return nil
	}

	m.incr(func(mt *Metrics) { mt.PrimaryFailures++ })
	m.logger.Warn("primary backend failed to save test, trying fallbacks",
		"test_id", t.ID,
		"fallback_count", len(m.fallbacks),
		"error", primaryErr,
	)

	for i, fb := range m.fallbacks {
		if err := fb.SaveTest(ctx, t); err != nil {
			m.incr(func(mt *Metrics) { mt.FallbackFailures++ })
			m.logger.Warn("fallback backend failed to save test",
				"test_id", t.ID,
				"fallback_index", i,
				"error", err,
			)
			continue
		}

		m.incr(func(mt *Metrics) { mt.FallbackSuccesses++ })
		m.logger.Info("test saved to fallback backend",
			"test_id", t.ID,
			"fallback_index", i,
		)
		return nil
	}

	m.logger.Error("all storage backends exhausted saving test",
		"test_id", t.ID,
		"error", primaryErr,
	)
	return primaryErr
}

// GetTrace retrieves a trace from the primary backend with retry. Reads
// never consult fallbacks; on retry exhaustion the primary's error is
// returned unchanged.
func (m *Manager) GetTrace(ctx context.Context, id string) (*trace.Trace, error) {
	var result *trace.Trace
	err := m.withRetry("get_trace", func() error {
		t, err := m.primary.GetTrace(ctx, id)
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		m.logger.Error("primary backend failed to get trace",
			"trace_id", id,
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

// ListTraces lists traces from the primary backend with retry. Reads never
// consult fallbacks.
func (m *Manager) ListTraces(ctx context.Context, opts *trace.ListOptions) ([]*trace.Trace, error) {
	var result []*trace.Trace
	err := m.withRetry("list_traces", func() error {
		traces, err := m.primary.ListTraces(ctx, opts)
		if err != nil {
			return err
		}
		result = traces
		return nil
	})
	if err != nil {
		m.logger.Error("primary backend failed to list traces", "error", err)
		return nil, err
	}
	return result, nil
}

// CountTraces counts traces in the primary backend with retry. Reads never
// consult fallbacks.
func (m *Manager) CountTraces(ctx context.Context) (int64, error) {
	var result int64
	err := m.withRetry("count_traces", func() error {
		count, err := m.primary.CountTraces(ctx)
		if err != nil {
			return err
		}
		result = count
		return nil
	})
	if err != nil {
		m.logger.Error("primary backend failed to count traces", "error", err)
		return 0, err
	}
	return result, nil
}

// GetTest retrieves a test from the primary backend with retry. Reads never
// consult fallbacks.
func (m *Manager) GetTest(ctx context.Context, id string) (*trace.Test, error) {
	var result *trace.Test
	err := m.withRetry("get_test", func() error {
		t, err := m.primary.GetTest(ctx, id)
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		m.logger.Error("primary backend failed to get test",
			"test_id", id,
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

// ListTests lists tests from the primary backend with retry. Reads never
// consult fallbacks.
func (m *Manager) ListTests(ctx context.Context, opts *trace.ListOptions) ([]*trace.Test, error) {
	var result []*trace.Test
	err := m.withRetry("list_tests", func() error {
		tests, err := m.primary.ListTests(ctx, opts)
		if err != nil {
			return err
		}
		result = tests
		return nil
	})
	if err != nil {
		m.logger.Error("primary backend failed to list tests", "error", err)
		return nil, err
	}
	return result, nil
}

// DeleteTrace removes a trace from every backend, primary and fallbacks
// alike, one attempt each. A record deleted from the system must be gone
// from every backend it might have landed in, so earlier failures do not
// stop the sweep. Failures are aggregated into a single logged warning and
// never returned.
func (m *Manager) DeleteTrace(ctx context.Context, id string) error {
	var failures []string

	if err := m.primary.DeleteTrace(ctx, id); err != nil {
		failures = append(failures, fmt.Sprintf("primary: %v", err))
	}
	for i, fb := range m.fallbacks {
		if err := fb.DeleteTrace(ctx, id); err != nil {
			failures = append(failures, fmt.Sprintf("fallback %d: %v", i, err))
		}
	}

	if len(failures) > 0 {
		m.logger.Warn("partial failure deleting trace",
			"trace_id", id,
			"failures", failures,
		)
	}
	return nil
}

// DeleteTest removes a test from every backend with the same best-effort
// semantics as DeleteTrace.
func (m *Manager) DeleteTest(ctx context.Context, id string) error {
	var failures []string

	if err := m.primary.DeleteTest(ctx, id); err != nil {
		failures = append(failures, fmt.Sprintf("primary: %v", err))
	}
	for i, fb := range m.fallbacks {
		if err := fb.DeleteTest(ctx, id); err != nil {
			failures = append(failures, fmt.Sprintf("fallback %d: %v", i, err))
		}
	}

	if len(failures) > 0 {
		m.logger.Warn("partial failure deleting test",
			"test_id", id,
			"failures", failures,
		)
	}
	return nil
}

// Cleanup runs a retention sweep on every backend sequentially and returns
// the total number of records removed. A failing backend contributes zero
// and does not abort the sweep.
func (m *Manager) Cleanup(ctx context.Context, opts trace.CleanupOptions) (int64, error) {
	var total int64

	removed, err := m.primary.Cleanup(ctx, opts)
	if err != nil {
		m.logger.Warn("primary backend cleanup failed", "error", err)
	} else {
		total += removed
	}

	for i, fb := range m.fallbacks {
		removed, err := fb.Cleanup(ctx, opts)
		if err != nil {
			m.logger.Warn("fallback backend cleanup failed",
				"fallback_index", i,
				"error", err,
			)
			continue
		}
		total += removed
	}

	return total, nil
}

// HealthCheck probes the liveness of every backend with a lightweight
// CountTraces call. It never returns an error; failures surface as
// "unhealthy" statuses. The fallback statuses are ordered to match the
// configured fallback order.
func (m *Manager) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Primary:   StatusHealthy,
		Fallbacks: make([]string, len(m.fallbacks)),
	}

	if _, err := m.primary.CountTraces(ctx); err != nil {
		status.Primary = StatusUnhealthy
		m.logger.Warn("primary backend health check failed", "error", err)
	}

	for i, fb := range m.fallbacks {
		status.Fallbacks[i] = StatusHealthy
		if _, err := fb.CountTraces(ctx); err != nil {
			status.Fallbacks[i] = StatusUnhealthy
			m.logger.Warn("fallback backend health check failed",
				"fallback_index", i,
				"error", err,
			)
		}
	}

	return status
}

// GetMetrics returns a snapshot of the failover counters.
func (m *Manager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// ResetMetrics zeroes all four counters atomically.
func (m *Manager) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = Metrics{}
}

// Close closes every backend, primary and fallbacks alike. Failures are
// aggregated into a single logged warning; close is best-effort and always
// returns nil once every backend has been attempted.
func (m *Manager) Close() error {
	var failures []string

	if err := m.primary.Close(); err != nil {
		failures = append(failures, fmt.Sprintf("primary: %v", err))
	}
	for i, fb := range m.fallbacks {
		if err := fb.Close(); err != nil {
			failures = append(failures, fmt.Sprintf("fallback %d: %v", i, err))
		}
	}

	if len(failures) > 0 {
		m.logger.Warn("partial failure closing storage backends",
			"failures", failures,
		)
	}
	return nil
}

// incr mutates the counters under the metrics lock.
func (m *Manager) incr(update func(*Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(&m.metrics)
}
