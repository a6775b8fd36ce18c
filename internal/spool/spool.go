package spool

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wxforward/wulike/internal/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS spool (
  id          TEXT PRIMARY KEY,
  enqueued_at TEXT NOT NULL,
  record      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spool_enqueued_at ON spool(enqueued_at);
`

const (
	insertSQL      = `INSERT INTO spool (id, enqueued_at, record) VALUES (?, ?, ?)`
	fetchOldestSQL = `SELECT id, enqueued_at, record FROM spool ORDER BY enqueued_at ASC, id ASC LIMIT ?`
	deleteSQL      = `DELETE FROM spool WHERE id = ?`
	countSQL       = `SELECT COUNT(*) FROM spool`
)

// enqueuedAtLayout is fixed-width so the lexicographic ordering SQL applies
// to the enqueued_at column matches chronological order. RFC3339Nano trims
// trailing fractional zeros, which breaks that within a single second.
const enqueuedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one spooled record waiting for catch-up.
type Entry struct {
	ID         string
	EnqueuedAt time.Time
	Record     *record.ArchiveRecord
}

// Store persists records that exhausted their upload retries so they survive
// process restarts and can be resent by the catch-up job.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the spool database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open spool %q: %w", path, err)
	}
	// sqlite handles one writer at a time; keep the pool at a single conn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create spool schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection; the schema must already exist or
// be creatable. Used by tests with an in-memory database.
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create spool schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert spools one record.
func (s *Store) Insert(rec *record.ArchiveRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	enqueued := time.Now().UTC().Format(enqueuedAtLayout)
	if _, err := s.db.Exec(insertSQL, uuid.NewString(), enqueued, string(payload)); err != nil {
		return fmt.Errorf("insert spooled record: %w", err)
	}
	return nil
}

// FetchOldest returns up to limit entries, oldest first.
func (s *Store) FetchOldest(limit int) ([]Entry, error) {
	rows, err := s.db.Query(fetchOldestSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts, payload string
		if err := rows.Scan(&e.ID, &ts, &payload); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse enqueued_at %q: %w", ts, err)
		}
		e.EnqueuedAt = t
		var rec record.ArchiveRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal spooled record %s: %w", e.ID, err)
		}
		e.Record = &rec
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes a spooled entry after a successful resend.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(deleteSQL, id); err != nil {
		return fmt.Errorf("delete spooled record %s: %w", id, err)
	}
	return nil
}

// Count returns the number of spooled records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(countSQL).Scan(&n)
	return n, err
}
