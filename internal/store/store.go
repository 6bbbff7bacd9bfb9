// Package store owns the embedded SQLite mirror of the translation catalog.
//
// The database runs in WAL mode so the UI's read queries proceed while the
// sync path commits multi-thousand-row batches. Two handles are opened
// against the same file:
//
//   - a write handle, capped at a single connection and owned exclusively by
//     the Writer's worker goroutine (every Game mutation goes through it);
//   - a read handle, used by the Repository for all queries.
//
// The split is discipline, not enforcement: nothing but the Writer may touch
// the games or games_fts tables.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// MetaLastSync is the sync_meta key holding the ISO-8601 timestamp of the
// last successful synchronization.
const MetaLastSync = "last_sync_at"

// Store wraps the two database handles for the catalog cache.
type Store struct {
	read  *sql.DB
	write *sql.DB
	path  string
}

// Open creates or opens the catalog database at the specified path.
//
// Both handles are opened with WAL mode, a 5s busy timeout and foreign keys
// enabled. The caller must run Migrate before using the store and MUST call
// Close when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	write, err := openHandle(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open write handle: %w", err)
	}
	// One connection: the write executor is the single writer.
	write.SetMaxOpenConns(1)

	read, err := openHandle(path)
	if err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("failed to open read handle: %w", err)
	}
	read.SetMaxOpenConns(4)
	read.SetMaxIdleConns(2)
	read.SetConnMaxLifetime(5 * time.Minute)

	return &Store{read: read, write: write, path: path}, nil
}

func openHandle(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return conn, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ReadDB returns the read handle. Callers must not issue writes on it.
func (s *Store) ReadDB() *sql.DB {
	return s.read
}

// WriteDB returns the write handle. Only the Writer should use it.
func (s *Store) WriteDB() *sql.DB {
	return s.write
}

// Close closes both handles, checkpointing the WAL first.
func (s *Store) Close() error {
	if s.write != nil {
		if _, err := s.write.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
		}
		if err := s.write.Close(); err != nil {
			return fmt.Errorf("failed to close write handle: %w", err)
		}
		s.write = nil
	}
	if s.read != nil {
		if err := s.read.Close(); err != nil {
			return fmt.Errorf("failed to close read handle: %w", err)
		}
		s.read = nil
	}
	return nil
}
