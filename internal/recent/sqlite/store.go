// Package sqlite provides a SQLite-backed recent.Store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"querybar/internal/recent"
)

// Store is a SQLite-backed recent.Store.
type Store struct {
	db   *sql.DB
	path string
}

var _ recent.Store = (*Store)(nil)

// NewStore opens a SQLite database at path and runs migrations.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create recent directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path is the database file.
func (s *Store) Path() string { return s.path }

// Record upserts value with its use time and evicts entries beyond
// recent.MaxEntries.
func (s *Store) Record(ctx context.Context, value string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recent_durations (value, used_at) VALUES (?, ?)
		ON CONFLICT (value) DO UPDATE SET used_at = excluded.used_at
	`, value, at.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert recent duration: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM recent_durations WHERE value NOT IN (
			SELECT value FROM recent_durations ORDER BY used_at DESC, value LIMIT ?
		)
	`, recent.MaxEntries)
	if err != nil {
		return fmt.Errorf("evict recent durations: %w", err)
	}
	return tx.Commit()
}

// List returns up to limit values, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT value FROM recent_durations ORDER BY used_at DESC, value LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list recent durations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan recent duration: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
