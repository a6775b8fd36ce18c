package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/wxforward/wulike/internal/record"
	"github.com/wxforward/wulike/internal/spool"
	"github.com/wxforward/wulike/internal/uploader"
)

// CatchupStore is the slice of the spool the drain job needs.
type CatchupStore interface {
	FetchOldest(limit int) ([]spool.Entry, error)
	Delete(id string) error
	Count() (int, error)
}

// Poster posts a single archive record.
type Poster interface {
	Enabled() bool
	Upload(ctx context.Context, rec *record.ArchiveRecord) error
}

// Scheduler periodically drains the spool of records that previously failed
// to upload, oldest first. It stops at the first failure so records reach
// the server in order.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     CatchupStore
	poster    Poster
	stats     *uploader.Stats
	logger    *slog.Logger
	interval  time.Duration
	batch     int
}

// New creates a new Scheduler.
func New(store CatchupStore, poster Poster, stats *uploader.Stats, logger *slog.Logger, interval time.Duration, batch int) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     store,
		poster:    poster,
		stats:     stats,
		logger:    logger,
		interval:  interval,
		batch:     batch,
	}
}

// Start schedules the periodic drain job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if !s.poster.Enabled() {
		s.logger.Info("catch-up disabled: uploader is disabled")
		return nil
	}

	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 300
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()
		s.drain(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// drain resends spooled records oldest first until the batch is done or an
// upload fails.
func (s *Scheduler) drain(ctx context.Context) {
	n, err := s.store.Count()
	if err != nil {
		s.logger.Error("catch-up: spool count failed", "error", err)
		return
	}
	if n == 0 {
		return
	}
	s.logger.Info("catch-up: draining spool", "spooled", n)

	entries, err := s.store.FetchOldest(s.batch)
	if err != nil {
		s.logger.Error("catch-up: spool fetch failed", "error", err)
		return
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if err := s.poster.Upload(ctx, e.Record); err != nil {
			// Server still unreachable; later entries would post out of order.
			s.logger.Warn("catch-up: upload failed, stopping drain",
				"id", e.ID, "timestamp", e.Record.Timestamp, "error", err)
			return
		}
		if err := s.store.Delete(e.ID); err != nil {
			s.logger.Error("catch-up: spool delete failed", "id", e.ID, "error", err)
			return
		}
		s.stats.Published.Inc()
		s.logger.Info("catch-up: resent record", "timestamp", e.Record.Timestamp)
	}
}
