package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/traceforge/traceforge/pkg/trace"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         ".ai-tests/traceforge.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteBackend implements trace.Backend using an embedded SQLite database.
// The driver is chosen at build time: modernc.org/sqlite by default, or
// mattn/go-sqlite3 with -tags sqlite_cgo.
type SQLiteBackend struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

var _ trace.Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend creates a new SQLite storage backend. It initializes the
// database schema and enables WAL mode if configured.
func NewSQLiteBackend(config *SQLiteConfig) (*SQLiteBackend, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "storage.sqlite")

	db, err := sql.Open(sqliteDriverName, config.Path)
	if err != nil {
		return nil, trace.NewBackendError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	b := &SQLiteBackend{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", sqliteDriverName,
		"wal_mode", config.WALMode,
	)

	return b, nil
}

// initialize sets up the database schema and enables WAL mode.
func (b *SQLiteBackend) initialize() error {
	if b.config.WALMode {
		if _, err := b.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return trace.NewBackendError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := b.config.BusyTimeout.Milliseconds()
	if _, err := b.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return trace.NewBackendError("sqlite", "set_busy_timeout", err)
	}

	if _, err := b.db.Exec(Schema); err != nil {
		return trace.NewBackendError("sqlite", "create_schema", err)
	}

	if _, err := b.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return trace.NewBackendError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := b.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return trace.NewBackendError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return trace.NewBackendError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// SaveTrace persists a trace record to the database. Saving an existing ID
// replaces the stored record.
func (b *SQLiteBackend) SaveTrace(ctx context.Context, t *trace.Trace) error {
	query := `
		INSERT OR REPLACE INTO traces (
			id, timestamp, provider, model, request, response, status, duration_ms, stream, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		t.ID, formatTime(t.Timestamp), t.Provider, t.Model,
		string(t.Request), string(t.Response),
		t.Status, t.DurationMS, t.Stream, t.Error,
	)
	if err != nil {
		return trace.NewBackendError("sqlite", "save_trace", err)
	}
	return nil
}

// GetTrace retrieves a trace by ID, or (nil, nil) if absent.
func (b *SQLiteBackend) GetTrace(ctx context.Context, id string) (*trace.Trace, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT id, timestamp, provider, model, request, response, status, duration_ms, stream, error
		 FROM traces WHERE id = ?`, id)

	t, err := scanTrace(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, trace.NewBackendError("sqlite", "get_trace", err)
	}
	return t, nil
}

// ListTraces returns traces matching the options, newest first.
func (b *SQLiteBackend) ListTraces(ctx context.Context, opts *trace.ListOptions) ([]*trace.Trace, error) {
	query := `SELECT id, timestamp, provider, model, request, response, status, duration_ms, stream, error FROM traces`
	where, args := buildTraceFilters(opts)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY timestamp DESC"
	query += buildPagination(opts)

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, trace.NewBackendError("sqlite", "list_traces", err)
	}
	defer rows.Close()

	traces := []*trace.Trace{}
	for rows.Next() {
		t, err := scanTrace(rows.Scan)
		if err != nil {
			return nil, trace.NewBackendError("sqlite", "scan_trace", err)
		}
		traces = append(traces, t)
	}
	if err := rows.Err(); err != nil {
		return nil, trace.NewBackendError("sqlite", "list_traces", err)
	}
	return traces, nil
}

// DeleteTrace removes a trace by ID. Absent records are ignored.
func (b *SQLiteBackend) DeleteTrace(ctx context.Context, id string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM traces WHERE id = ?`, id); err != nil {
		return trace.NewBackendError("sqlite", "delete_trace", err)
	}
	return nil
}

// CountTraces returns the number of stored traces.
func (b *SQLiteBackend) CountTraces(ctx context.Context) (int64, error) {
	var count int64
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM traces`).Scan(&count); err != nil {
		return 0, trace.NewBackendError("sqlite", "count_traces", err)
	}
	return count, nil
}

// SaveTest persists a test record to the database. Saving an existing ID
// replaces the stored record.
func (b *SQLiteBackend) SaveTest(ctx context.Context, t *trace.Test) error {
	query := `
		INSERT OR REPLACE INTO tests (
			id, name, trace_id, timestamp, input, expected
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		t.ID, t.Name, t.TraceID, formatTime(t.Timestamp),
		string(t.Input), string(t.Expected),
	)
	if err != nil {
		return trace.NewBackendError("sqlite", "save_test", err)
	}
	return nil
}

// GetTest retrieves a test by ID, or (nil, nil) if absent.
func (b *SQLiteBackend) GetTest(ctx context.Context, id string) (*trace.Test, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT id, name, trace_id, timestamp, input, expected FROM tests WHERE id = ?`, id)

	t, err := scanTest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, trace.NewBackendError("sqlite", "get_test", err)
	}
	return t, nil
}

// ListTests returns tests matching the options, newest first.
func (b *SQLiteBackend) ListTests(ctx context.Context, opts *trace.ListOptions) ([]*trace.Test, error) {
	query := `SELECT id, name, trace_id, timestamp, input, expected FROM tests`
	where, args := buildTimeFilters(opts)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY timestamp DESC"
	query += buildPagination(opts)

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, trace.NewBackendError("sqlite", "list_tests", err)
	}
	defer rows.Close()

	tests := []*trace.Test{}
	for rows.Next() {
		t, err := scanTest(rows.Scan)
		if err != nil {
			return nil, trace.NewBackendError("sqlite", "scan_test", err)
		}
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, trace.NewBackendError("sqlite", "list_tests", err)
	}
	return tests, nil
}

// DeleteTest removes a test by ID. Absent records are ignored.
func (b *SQLiteBackend) DeleteTest(ctx context.Context, id string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, id); err != nil {
		return trace.NewBackendError("sqlite", "delete_test", err)
	}
	return nil
}

// Cleanup removes records exceeding the age or count limits and returns
// the number removed across both tables.
func (b *SQLiteBackend) Cleanup(ctx context.Context, opts trace.CleanupOptions) (int64, error) {
	var removed int64

	if opts.MaxAge > 0 {
		cutoff := formatTime(time.Now().Add(-opts.MaxAge))
		for _, table := range []string{"traces", "tests"} {
			res, err := b.db.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE timestamp < ?`, table), cutoff)
			if err != nil {
				return removed, trace.NewBackendError("sqlite", "cleanup_age", err)
			}
			n, _ := res.RowsAffected()
			removed += n
		}
	}

	if opts.MaxCount > 0 {
		for _, table := range []string{"traces", "tests"} {
			res, err := b.db.ExecContext(ctx, fmt.Sprintf(`
				DELETE FROM %s WHERE id IN (
					SELECT id FROM %s ORDER BY timestamp ASC
					LIMIT (SELECT CASE WHEN COUNT(*) > ? THEN COUNT(*) - ? ELSE 0 END FROM %s)
				)`, table, table, table), opts.MaxCount, opts.MaxCount)
			if err != nil {
				return removed, trace.NewBackendError("sqlite", "cleanup_count", err)
			}
			n, _ := res.RowsAffected()
			removed += n
		}
	}

	return removed, nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if err := b.db.Close(); err != nil {
		return trace.NewBackendError("sqlite", "close", err)
	}
	return nil
}

// formatTime renders a timestamp as RFC 3339 UTC text, the canonical
// on-disk representation for both drivers.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// scanTrace scans a trace row via the given scan function.
func scanTrace(scan func(...any) error) (*trace.Trace, error) {
	var t trace.Trace
	var ts, request, response string

	err := scan(&t.ID, &ts, &t.Provider, &t.Model, &request, &response,
		&t.Status, &t.DurationMS, &t.Stream, &t.Error)
	if err != nil {
		return nil, err
	}

	t.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed timestamp %q: %w", ts, err)
	}
	if request != "" {
		t.Request = []byte(request)
	}
	if response != "" {
		t.Response = []byte(response)
	}
	return &t, nil
}

// scanTest scans a test row via the given scan function.
func scanTest(scan func(...any) error) (*trace.Test, error) {
	var t trace.Test
	var ts, input, expected string

	err := scan(&t.ID, &t.Name, &t.TraceID, &ts, &input, &expected)
	if err != nil {
		return nil, err
	}

	t.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed timestamp %q: %w", ts, err)
	}
	if input != "" {
		t.Input = []byte(input)
	}
	if expected != "" {
		t.Expected = []byte(expected)
	}
	return &t, nil
}

// buildTraceFilters builds the WHERE clause for trace list filters.
func buildTraceFilters(opts *trace.ListOptions) (string, []any) {
	if opts == nil {
		return "", nil
	}

	var clauses []string
	var args []any

	if opts.Provider != "" {
		clauses = append(clauses, "provider = ?")
		args = append(args, opts.Provider)
	}
	if opts.Model != "" {
		clauses = append(clauses, "model = ?")
		args = append(args, opts.Model)
	}

	timeClause, timeArgs := buildTimeFilters(opts)
	if timeClause != "" {
		clauses = append(clauses, timeClause)
		args = append(args, timeArgs...)
	}

	return strings.Join(clauses, " AND "), args
}

// buildTimeFilters builds the WHERE clause for time range filters.
func buildTimeFilters(opts *trace.ListOptions) (string, []any) {
	if opts == nil {
		return "", nil
	}

	var clauses []string
	var args []any

	if opts.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, formatTime(*opts.Since))
	}
	if opts.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, formatTime(*opts.Until))
	}

	return strings.Join(clauses, " AND "), args
}

// buildPagination renders LIMIT/OFFSET for list queries.
func buildPagination(opts *trace.ListOptions) string {
	if opts == nil {
		return ""
	}

	var sb strings.Builder
	if opts.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", opts.Limit)
	} else if opts.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET
		sb.WriteString(" LIMIT -1")
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", opts.Offset)
	}
	return sb.String()
}
