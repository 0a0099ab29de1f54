package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/veithly/PolyAlpha/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// SessionWriter consumes finished session records and writes them to the
// stream_sessions table.
type SessionWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input   chan model.SessionRecord
	stopped atomic.Bool

	db Execer

	// Batching
	batch       []model.SessionRecord
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewSessionWriter creates a new SessionWriter.
func NewSessionWriter(cfg WriterConfig, db Execer, logger *slog.Logger) *SessionWriter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &SessionWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan model.SessionRecord, cfg.BufferSize),
		batch:  make([]model.SessionRecord, 0, cfg.BatchSize),
	}
}

// Record enqueues a session record. It never blocks; records arriving while
// the queue is full or after Stop are counted as dropped.
func (w *SessionWriter) Record(rec model.SessionRecord) {
	if w.stopped.Load() {
		w.countDrop()
		return
	}
	select {
	case w.input <- rec:
	default:
		w.countDrop()
		w.logger.Warn("session record dropped", "session_id", rec.SessionID, "market_id", rec.MarketID)
	}
}

func (w *SessionWriter) countDrop() {
	w.batchMu.Lock()
	w.metrics.Dropped++
	w.batchMu.Unlock()
}

// Start begins consuming records and writing to the database.
func (w *SessionWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("session writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains queued records, flushes them and shuts down the writer.
func (w *SessionWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping session writer")
	w.stopped.Store(true)

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("session writer stopped")
	case <-ctx.Done():
		w.logger.Warn("session writer stop timed out")
	}

	// Pick up anything still queued, then write it under the caller's deadline.
drain:
	for {
		select {
		case rec := <-w.input:
			w.batchMu.Lock()
			w.batch = append(w.batch, rec)
			w.batchMu.Unlock()
		default:
			break drain
		}
	}
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *SessionWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *SessionWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case rec := <-w.input:
			w.handleRecord(rec)
		}
	}
}

func (w *SessionWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *SessionWriter) handleRecord(rec model.SessionRecord) {
	w.batchMu.Lock()
	w.batch = append(w.batch, rec)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// flush writes the current batch to the database.
func (w *SessionWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]model.SessionRecord, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed sessions",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert writes rows with a single multi-row INSERT ... ON CONFLICT DO NOTHING.
func (w *SessionWriter) batchInsert(ctx context.Context, rows []model.SessionRecord) (conflicts int, err error) {
	query, args, err := buildInsert(rows)
	if err != nil {
		return 0, err
	}

	ct, err := w.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	affected := int(ct.RowsAffected())
	if affected > len(rows) {
		affected = len(rows)
	}
	return len(rows) - affected, nil
}

func buildInsert(rows []model.SessionRecord) (string, []any, error) {
	q := psql.Insert(sessionsTable).Columns(sessionColumns...)
	for _, r := range rows {
		q = q.Values(
			r.SessionID,
			r.MarketID,
			r.StartedAt.UTC(),
			r.EndedAt.UTC(),
			r.TicksSent,
			r.TicksDropped,
			r.EndReason,
		)
	}
	query, args, err := q.Suffix("ON CONFLICT (session_id) DO NOTHING").ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert: %w", err)
	}
	return query, args, nil
}
