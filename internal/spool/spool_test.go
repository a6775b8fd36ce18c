package spool

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wxforward/wulike/internal/record"
)

func fptr(v float64) *float64 { return &v }

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func testRecord(ts time.Time) *record.ArchiveRecord {
	return &record.ArchiveRecord{
		StationID:    "S1",
		Timestamp:    ts,
		TemperatureC: fptr(20.5),
		HumidityPct:  fptr(60),
	}
}

func TestInsertFetchDelete(t *testing.T) {
	s := setupTestStore(t)

	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Insert(testRecord(ts)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 spooled record, got %d", n)
	}

	entries, err := s.FetchOldest(10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Error("entry should have an id")
	}
	if !e.Record.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, e.Record.Timestamp)
	}
	if e.Record.TemperatureC == nil || *e.Record.TemperatureC != 20.5 {
		t.Errorf("temperature did not survive the round trip: %v", e.Record.TemperatureC)
	}

	if err := s.Delete(e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err = s.Count()
	if err != nil {
		t.Fatalf("count after delete: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty spool after delete, got %d", n)
	}
}

// TestFetchOldestSameSecondOrdering inserts rows whose enqueue times differ
// only in their fractional second, including a whole-second one, and checks
// the drain order is chronological. Variable-width fractions would sort
// "00.15" before "00.1" and the whole second last.
func TestFetchOldestSameSecondOrdering(t *testing.T) {
	s := setupTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(150 * time.Millisecond),
		base,
		base.Add(100 * time.Millisecond),
	}
	for i, ts := range times {
		rec := testRecord(ts)
		payload, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		_, err = s.db.Exec(insertSQL, uuid.NewString(), ts.Format(enqueuedAtLayout), string(payload))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	entries, err := s.FetchOldest(10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	want := []time.Time{base, base.Add(100 * time.Millisecond), base.Add(150 * time.Millisecond)}
	for i, e := range entries {
		if !e.EnqueuedAt.Equal(want[i]) {
			t.Errorf("entry %d: expected enqueued_at %v, got %v", i, want[i], e.EnqueuedAt)
		}
	}
}

func TestFetchOldestOrdering(t *testing.T) {
	s := setupTestStore(t)

	// Insert three records; enqueue times are assigned at insert, so insert
	// order is the expected drain order.
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := s.Insert(testRecord(base.Add(time.Duration(i) * time.Minute))); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := s.FetchOldest(2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit of 2 entries, got %d", len(entries))
	}
	if !entries[0].EnqueuedAt.Before(entries[1].EnqueuedAt) {
		t.Errorf("entries not ordered oldest first: %v then %v",
			entries[0].EnqueuedAt, entries[1].EnqueuedAt)
	}
	if !entries[0].Record.Timestamp.Equal(base) {
		t.Errorf("expected the first inserted record first, got %v", entries[0].Record.Timestamp)
	}
}
