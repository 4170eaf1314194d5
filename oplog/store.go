// Package oplog persists a durable append-only record of purge attempts.
// Writes are unbounded; the read path trims to the most recent entries for
// display. Operationally a rolling-retention policy on the database file is
// recommended, but the package does not enforce one.
package oplog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry statuses. Triggered purge failures are recorded as error, expected
// empty results (no URLs to purge yet) as info.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusInfo    = "info"
)

// Entry is one recorded purge attempt. RequestID ties together rows produced
// by one purge request, such as an immediate attempt and its deferred retry.
type Entry struct {
	ID        int64
	RequestID string
	Operation string
	URLs      []string
	TargetID  int64 // 0 when the attempt was not tied to an item or asset
	Status    string
	Message   string
	At        time.Time
}

// Store wraps a SQLite database holding the purge operation log.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the log database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent readers while a purge attempt is being recorded;
	// busy_timeout so overlapping attempts wait instead of failing with
	// SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS purge_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL DEFAULT '',
    operation_type TEXT NOT NULL,
    urls TEXT NOT NULL,
    target_id INTEGER,
    status TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_purge_log_target ON purge_log(target_id);
CREATE INDEX IF NOT EXISTS idx_purge_log_created ON purge_log(created_at);
`)
	return err
}

// Record appends one entry. requestID correlates rows from the same purge
// request; URLs are stored as a JSON array so the original indexed list
// round-trips exactly.
func (s *Store) Record(requestID, operation string, urls []string, targetID int64, status, message string) error {
	if urls == nil {
		urls = []string{}
	}
	encoded, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("oplog: encode urls: %w", err)
	}
	target := sql.NullInt64{Int64: targetID, Valid: targetID != 0}
	_, err = s.db.Exec(
		`INSERT INTO purge_log (request_id, operation_type, urls, target_id, status, message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		requestID, operation, string(encoded), target, status, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("oplog: record: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first. limit caps the
// result; values <= 0 fall back to 20, matching the reporting surface.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, request_id, operation_type, urls, target_id, status, message, created_at FROM purge_log ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var encoded string
		var target sql.NullInt64
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Operation, &encoded, &target, &e.Status, &e.Message, &e.At); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(encoded), &e.URLs); err != nil {
			return nil, fmt.Errorf("oplog: decode urls for entry %d: %w", e.ID, err)
		}
		if target.Valid {
			e.TargetID = target.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
