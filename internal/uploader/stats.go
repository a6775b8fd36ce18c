package uploader

import "go.uber.org/atomic"

// Stats counts upload outcomes. All fields are safe for concurrent use.
type Stats struct {
	Published atomic.Int64 // records posted successfully
	Failed    atomic.Int64 // records that exhausted retries
	Dropped   atomic.Int64 // records lost to backlog overflow or bad login
	Skipped   atomic.Int64 // records skipped (stale or inside post interval)
	Spooled   atomic.Int64 // failed records handed to the spool
}

// Snapshot returns the counters as a plain map for the status endpoint.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"published": s.Published.Load(),
		"failed":    s.Failed.Load(),
		"dropped":   s.Dropped.Load(),
		"skipped":   s.Skipped.Load(),
		"spooled":   s.Spooled.Load(),
	}
}
