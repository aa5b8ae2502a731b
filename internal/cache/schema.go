package cache

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is bumped whenever the cache table layout changes.
const SchemaVersion = "1"

const createFileAnalysesTable = `
CREATE TABLE IF NOT EXISTS file_analyses (
	file_path    TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	analysis     BLOB NOT NULL,
	indexed_at   TEXT NOT NULL
)`

const createCacheMetadataTable = `
CREATE TABLE IF NOT EXISTS cache_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// createSchema creates the cache tables. A database written by a different schema
// version is wiped, since cached analyses are always recomputable.
func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"file_analyses", createFileAnalysesTable},
		{"cache_metadata", createCacheMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	var version string
	err = tx.QueryRow(`SELECT value FROM cache_metadata WHERE key = 'schema_version'`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case version != SchemaVersion:
		if _, err := tx.Exec(`DELETE FROM file_analyses`); err != nil {
			return fmt.Errorf("failed to clear stale cache: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO cache_metadata (key, value) VALUES ('schema_version', ?)`,
		SchemaVersion,
	); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}
