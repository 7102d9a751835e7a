// Package metastore is the authoritative filesystem bookkeeping store:
// a single SQLite table mapping a document path, stored exactly as the
// caller passes it, to its last known content hash and modification time. The ingest watcher commits
// a path's new hash here before emitting a DocEvent, and uses the
// previous row (if any) to classify the mutation as Created, Updated,
// or Deleted. Follows the familiar Open/migrate pattern for a SQLite-
// backed store (WAL pragma, blank sqlite3 driver import), trimmed to
// the single table the event producer needs.
package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/corpusforge/hybridcore/internal/searcherr"
)

// ErrNotFound is returned when a path has no tracked record.
var ErrNotFound = errors.New("path not tracked")

// Record is a tracked document's last known on-disk state.
type Record struct {
	Path        string
	ContentHash string
	ModTime     time.Time
	Size        int64
}

// Store wraps a SQLite connection holding the path-tracking table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and runs
// its migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, searcherr.Io(fmt.Errorf("opening metastore: %w", err))
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, searcherr.Io(fmt.Errorf("migrating metastore: %w", err))
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS tracked_paths (
		path TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		mod_time DATETIME NOT NULL,
		size INTEGER NOT NULL DEFAULT 0
	)`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the tracked record for path, or ErrNotFound if path has
// never been seen.
func (s *Store) Get(ctx context.Context, path string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path, content_hash, mod_time, size FROM tracked_paths WHERE path = ?`, path)

	var r Record
	if err := row.Scan(&r.Path, &r.ContentHash, &r.ModTime, &r.Size); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, searcherr.Io(fmt.Errorf("scanning tracked path: %w", err))
	}
	return r, nil
}

// Upsert commits a path's new known state, replacing any prior record.
// This is the write the ingest watcher performs before it emits the
// corresponding DocEvent.
func (s *Store) Upsert(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_paths (path, content_hash, mod_time, size)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size = excluded.size
	`, r.Path, r.ContentHash, r.ModTime.UTC(), r.Size)
	if err != nil {
		return searcherr.Io(fmt.Errorf("upserting tracked path: %w", err))
	}
	return nil
}

// Rename moves a tracked record from oldPath to newPath, preserving its
// hash and mod time.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tracked_paths SET path = ? WHERE path = ?`, newPath, oldPath)
	if err != nil {
		return searcherr.Io(fmt.Errorf("renaming tracked path: %w", err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return searcherr.Io(fmt.Errorf("checking rows affected: %w", err))
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes path's tracked record.
func (s *Store) Delete(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracked_paths WHERE path = ?`, path)
	if err != nil {
		return searcherr.Io(fmt.Errorf("deleting tracked path: %w", err))
	}
	return nil
}

// List returns every tracked record.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, content_hash, mod_time, size FROM tracked_paths`)
	if err != nil {
		return nil, searcherr.Io(fmt.Errorf("listing tracked paths: %w", err))
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Path, &r.ContentHash, &r.ModTime, &r.Size); err != nil {
			return nil, searcherr.Io(fmt.Errorf("scanning tracked path: %w", err))
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Classify reports whether path, now seen with newHash, is new or
// changed relative to the last tracked record. It does not mutate the
// store; callers commit via Upsert after deciding how to handle the
// event.
func (s *Store) Classify(ctx context.Context, path, newHash string) (changed bool, isNew bool, err error) {
	existing, err := s.Get(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, true, nil
		}
		return false, false, err
	}
	return existing.ContentHash != newHash, false, nil
}
