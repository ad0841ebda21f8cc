package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to schema_metadata when the schema is created.
const SchemaVersion = "1.0"

// CreateSchema creates all tables and indexes for the summary store.
// Uses a transaction so schema creation succeeds or fails as a whole.
// Safe to call on a database that already has the schema.
//
// Schema includes:
//   - runs: one row per generated summary
//   - directories, file_types: the summary's directory list and meta counts
//   - files: one row per summary entry, with content
//   - symbols: functions, classes, comments and Stata sequences per file
//   - schema_metadata: bootstrap metadata
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"directories", createDirectoriesTable},
		{"file_types", createFileTypesTable},
		{"files", createFilesTable},
		{"symbols", createSymbolsTable},
		{"schema_metadata", createSchemaMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`
		INSERT OR IGNORE INTO schema_metadata (key, value, updated_at)
		VALUES ('schema_version', ?, ?)
	`, SchemaVersion, now)
	if err != nil {
		return fmt.Errorf("failed to bootstrap schema_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from schema_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check schema_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM schema_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in schema_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    root_dir TEXT NOT NULL,                      -- Absolute root that was summarized
    generated_at TEXT NOT NULL,                  -- meta.generated_at, verbatim
    total_files INTEGER NOT NULL DEFAULT 0,
    total_directories INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL                     -- ISO 8601 when the row was stored
)
`

const createDirectoriesTable = `
CREATE TABLE IF NOT EXISTS directories (
    run_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,                    -- Position in the summary's directory list
    dir_path TEXT NOT NULL,
    PRIMARY KEY (run_id, ordinal),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createFileTypesTable = `
CREATE TABLE IF NOT EXISTS file_types (
    run_id TEXT NOT NULL,
    ext TEXT NOT NULL,                           -- "" for files without an extension
    file_count INTEGER NOT NULL,
    PRIMARY KEY (run_id, ext),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    file_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,                    -- Position in the summary's file list
    file_path TEXT NOT NULL,                     -- Relative path from the summarized root
    is_stata INTEGER NOT NULL DEFAULT 0,         -- Boolean: entry carries Stata sequences
    content TEXT NOT NULL,
    UNIQUE (run_id, ordinal),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
    file_id INTEGER NOT NULL,
    kind TEXT NOT NULL,                          -- function, class, comment, used_dataset, saved_dataset, command
    ordinal INTEGER NOT NULL,                    -- Position within the file's sequence of this kind
    value TEXT NOT NULL,
    PRIMARY KEY (file_id, kind, ordinal),
    FOREIGN KEY (file_id) REFERENCES files(file_id) ON DELETE CASCADE
)
`

const createSchemaMetadataTable = `
CREATE TABLE IF NOT EXISTS schema_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_files_path ON files(run_id, file_path)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_lookup ON symbols(kind, value)",
	}
}
