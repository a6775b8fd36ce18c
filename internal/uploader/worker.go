package uploader

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wxforward/wulike/internal/config"
	"github.com/wxforward/wulike/internal/record"
	"github.com/wxforward/wulike/internal/wunderground"
)

// Spool receives records that exhausted their retries so a later catch-up
// pass can resend them.
type Spool interface {
	Insert(rec *record.ArchiveRecord) error
}

// Worker consumes archive records from a bounded backlog and posts them one
// at a time. A single goroutine does all posting, so records are never
// reordered by concurrent retries.
type Worker struct {
	up     *Uploader
	cfg    config.UploadConfig
	spool  Spool
	logger *slog.Logger
	stats  *Stats

	queue    chan *record.ArchiveRecord
	lastPost time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewWorker builds the queue worker. spool may be nil, in which case failed
// records are dropped after logging.
func NewWorker(up *Uploader, cfg config.UploadConfig, spool Spool, stats *Stats, logger *slog.Logger) *Worker {
	backlog := cfg.MaxBacklog
	if backlog < 1 {
		backlog = 1
	}
	return &Worker{
		up:     up,
		cfg:    cfg,
		spool:  spool,
		logger: logger,
		stats:  stats,
		queue:  make(chan *record.ArchiveRecord, backlog),
		done:   make(chan struct{}),
	}
}

// Enqueue hands a record to the worker. When the backlog is full the oldest
// queued record is dropped to make room, matching the host's queued-post
// policy of preferring fresh data.
func (w *Worker) Enqueue(rec *record.ArchiveRecord) {
	if !w.up.Enabled() {
		return
	}

	select {
	case w.queue <- rec:
		return
	default:
	}

	// Backlog full: evict the oldest and try once more.
	select {
	case old := <-w.queue:
		w.stats.Dropped.Inc()
		w.logger.Warn("backlog full, dropping oldest record",
			"timestamp", old.Timestamp, "backlog", cap(w.queue))
	default:
	}

	select {
	case w.queue <- rec:
	default:
		// Lost the race to another producer; the new record is the casualty.
		w.stats.Dropped.Inc()
		w.logger.Warn("backlog full, dropping record", "timestamp", rec.Timestamp)
	}
}

// Start launches the posting loop. It is a no-op when the uploader is
// disabled, so the disabled path can never issue a request.
func (w *Worker) Start(ctx context.Context) {
	if !w.up.Enabled() {
		w.logger.Warn("uploader disabled; records will not be posted")
		return
	}
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
	w.logger.Info("uploader started",
		"station", w.cfg.Station, "server_url", w.cfg.ServerURL)
}

// Stop terminates the posting loop. Queued records are left for the process
// exit; they were never acknowledged to the host.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case rec := <-w.queue:
			w.process(ctx, rec)
		}
	}
}

func (w *Worker) process(ctx context.Context, rec *record.ArchiveRecord) {
	now := time.Now().UTC()

	if w.cfg.Stale > 0 && rec.Age(now) > w.cfg.Stale {
		w.stats.Skipped.Inc()
		w.logger.Debug("skipping stale record",
			"timestamp", rec.Timestamp, "age", rec.Age(now))
		return
	}

	if w.cfg.PostInterval > 0 && !w.lastPost.IsZero() && now.Sub(w.lastPost) < w.cfg.PostInterval {
		w.stats.Skipped.Inc()
		w.logger.Debug("skipping record inside post interval", "timestamp", rec.Timestamp)
		return
	}

	err := w.up.Upload(ctx, rec)
	if err == nil {
		w.lastPost = now
		w.stats.Published.Inc()
		if w.cfg.LogSuccess {
			w.logger.Info("published record",
				"station", w.cfg.Station, "timestamp", rec.Timestamp)
		}
		return
	}

	if errors.Is(err, wunderground.ErrBadLogin) {
		// Resending cannot help; drop instead of spooling.
		w.stats.Dropped.Inc()
		w.logger.Error("server rejected credentials, dropping record",
			"station", w.cfg.Station, "timestamp", rec.Timestamp)
		return
	}

	w.stats.Failed.Inc()
	if w.cfg.LogFailure {
		w.logger.Warn("failed to publish record",
			"timestamp", rec.Timestamp, "error", err)
	}

	if w.spool == nil {
		w.stats.Dropped.Inc()
		w.logger.Error("no spool configured, record dropped", "timestamp", rec.Timestamp)
		return
	}
	if spoolErr := w.spool.Insert(rec); spoolErr != nil {
		w.stats.Dropped.Inc()
		w.logger.Error("spool insert failed, record dropped",
			"timestamp", rec.Timestamp, "error", spoolErr)
		return
	}
	w.stats.Spooled.Inc()
}
