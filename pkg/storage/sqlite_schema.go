package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the capture database schema.
// Timestamps are stored as RFC 3339 UTC text so the schema behaves
// identically under both supported SQLite drivers.
const Schema = `
-- Captured traces
CREATE TABLE IF NOT EXISTS traces (
    id TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    provider TEXT,
    model TEXT,
    request TEXT,
    response TEXT,
    status INTEGER,
    duration_ms INTEGER,
    stream BOOLEAN,
    error TEXT
);

-- Stored test cases
CREATE TABLE IF NOT EXISTS tests (
    id TEXT PRIMARY KEY,
    name TEXT,
    trace_id TEXT,
    timestamp TEXT NOT NULL,
    input TEXT,
    expected TEXT
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_traces_timestamp ON traces(timestamp);
CREATE INDEX IF NOT EXISTS idx_traces_provider ON traces(provider);
CREATE INDEX IF NOT EXISTS idx_traces_model ON traces(model);
CREATE INDEX IF NOT EXISTS idx_tests_timestamp ON tests(timestamp);
CREATE INDEX IF NOT EXISTS idx_tests_trace_id ON tests(trace_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
