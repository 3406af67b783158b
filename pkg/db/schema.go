// Package db provides SQLite storage for option resolution history and metadata.
package db

import "fmt"

// SchemaVersion is stored in history_metadata when the schema is created.
const SchemaVersion = "1"

// Schema defines the SQL statements to create database tables.
const Schema = `
-- One row per recorded resolution of a ledger's options
CREATE TABLE IF NOT EXISTS resolutions (
    id TEXT PRIMARY KEY,               -- UUID
    ledger_file TEXT NOT NULL,         -- Absolute path of the main ledger file
    resolved_at TIMESTAMP NOT NULL,
    option_count INTEGER NOT NULL,
    error_count INTEGER NOT NULL       -- Option errors plus parse errors
);

CREATE INDEX IF NOT EXISTS idx_resolutions_ledger_time
    ON resolutions(ledger_file, resolved_at);

-- Resolved value of every option key, rendered as YAML
CREATE TABLE IF NOT EXISTS resolution_values (
    resolution_id TEXT NOT NULL REFERENCES resolutions(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (resolution_id, key)
);

-- Errors reported while resolving
CREATE TABLE IF NOT EXISTS resolution_errors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    resolution_id TEXT NOT NULL REFERENCES resolutions(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,                -- 'option' or 'parse'
    filename TEXT NOT NULL,
    lineno INTEGER NOT NULL,
    message TEXT NOT NULL,
    cause TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_resolution_errors_resolution
    ON resolution_errors(resolution_id);

-- Key-value metadata about the history store
CREATE TABLE IF NOT EXISTS history_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables if they don't exist and records the
// schema version.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	_, err := conn.Exec(
		`INSERT OR IGNORE INTO history_metadata (key, value) VALUES ('schema_version', ?)`,
		SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
