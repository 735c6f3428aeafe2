// internal/state/sqlite.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	custom_errors "starred-digest/internal/errors"
)

const createSyncMarkersTable = `
CREATE TABLE IF NOT EXISTS sync_markers (
	repo      TEXT PRIMARY KEY,
	synced_at TEXT NOT NULL
)`

// SQLiteBackend stores markers in a local SQLite database.
// PRAGMA user_version carries the schema tag.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLiteBackend opens (and if needed creates) the database at path.
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	b, err := NewSQLiteBackend(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewSQLiteBackend wraps an existing connection and ensures the schema exists.
// A fresh database is stamped with SchemaVersion.
func NewSQLiteBackend(db *sql.DB) (*SQLiteBackend, error) {
	version, err := userVersion(db)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createSyncMarkersTable); err != nil {
		return nil, fmt.Errorf("create sync_markers: %w", err)
	}
	if version == 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return nil, fmt.Errorf("set user_version: %w", err)
		}
	}
	return &SQLiteBackend{db: db}, nil
}

// Load reads every marker row.
func (b *SQLiteBackend) Load(ctx context.Context) (map[string]time.Time, error) {
	version, err := userVersion(b.db)
	if err != nil {
		return nil, err
	}
	if version != SchemaVersion {
		return nil, custom_errors.ErrStateVersionMismatch
	}

	rows, err := b.db.QueryContext(ctx, `SELECT repo, synced_at FROM sync_markers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	markers := make(map[string]time.Time)
	for rows.Next() {
		var repo, raw string
		if err := rows.Scan(&repo, &raw); err != nil {
			return nil, err
		}
		t, err := parseTimestamp(raw)
		if err != nil {
			return nil, &custom_errors.CorruptStateError{Source: "sqlite", Err: fmt.Errorf("repo %s: %w", repo, err)}
		}
		markers[repo] = t
	}
	return markers, rows.Err()
}

// Save replaces the table contents in one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, markers map[string]time.Time) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_markers`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sync_markers (repo, synced_at) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for repo, t := range markers {
		if _, err := stmt.ExecContext(ctx, repo, formatTimestamp(t)); err != nil {
			return fmt.Errorf("insert marker %s: %w", repo, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}
