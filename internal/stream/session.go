package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"

	"github.com/veithly/PolyAlpha/internal/feed"
	"github.com/veithly/PolyAlpha/internal/model"
	"github.com/veithly/PolyAlpha/internal/orderbook"
	"github.com/veithly/PolyAlpha/internal/poller"
	"github.com/veithly/PolyAlpha/internal/pulse"
)

// End reasons recorded for a session.
const (
	EndClientGone  = "client_gone"
	EndWriteFailed = "write_failed"
)

// Subscriber registers a handler for one market's feed frames.
type Subscriber interface {
	Subscribe(marketID string, handler feed.Handler) (unsubscribe func())
}

// Recorder stores a summary of each finished session.
type Recorder interface {
	Record(rec model.SessionRecord)
}

// Config configures a Session.
type Config struct {
	RingSize          int           // Ticks kept per session
	PulseWindow       int           // Newest ticks fed to the pulse calculator
	TickBuffer        int           // Pending ticks before new ones are dropped
	RefreshInterval   time.Duration // Orderbook refresh interval
	RefreshTimeout    time.Duration // Per-refresh timeout
	HeartbeatInterval time.Duration // Ping interval
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RingSize:          100,
		PulseWindow:       50,
		TickBuffer:        256,
		RefreshInterval:   20 * time.Second,
		RefreshTimeout:    10 * time.Second,
		HeartbeatInterval: 15 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RingSize <= 0 {
		c.RingSize = d.RingSize
	}
	if c.PulseWindow <= 0 {
		c.PulseWindow = d.PulseWindow
	}
	if c.TickBuffer <= 0 {
		c.TickBuffer = d.TickBuffer
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = d.RefreshInterval
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = d.RefreshTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	return c
}

// Session streams one market to one client.
type Session struct {
	id       string
	marketID string
	cfg      Config
	w        http.ResponseWriter
	rc       *http.ResponseController
	feed     Subscriber
	books    orderbook.Fetcher
	recorder Recorder
	logger   *slog.Logger

	ring  *Ring[model.Tick]
	book  atomic.Pointer[model.OrderbookSnapshot]
	ticks chan model.Tick

	refresh     *poller.Poller[*model.OrderbookSnapshot]
	unsubscribe func()

	closed    atomic.Bool
	cleanOnce sync.Once
	startedAt time.Time
	endReason string

	sent    atomic.Int64
	dropped atomic.Int64
}

// NewSession creates a session writing to w. recorder may be nil.
func NewSession(w http.ResponseWriter, marketID string, cfg Config, sub Subscriber, books orderbook.Fetcher, recorder Recorder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	id := uuid.NewString()

	return &Session{
		id:       id,
		marketID: marketID,
		cfg:      cfg,
		w:        w,
		rc:       http.NewResponseController(w),
		feed:     sub,
		books:    books,
		recorder: recorder,
		logger:   logger.With("session_id", id, "market_id", marketID),
		ring:     NewRing[model.Tick](cfg.RingSize),
		ticks:    make(chan model.Tick, cfg.TickBuffer),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the latest orderbook snapshot, or nil before the first successful refresh.
func (s *Session) Snapshot() *model.OrderbookSnapshot {
	return s.book.Load()
}

// SetHeaders writes the event-stream response headers.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Run streams until ctx ends or a write fails, then cleans up.
func (s *Session) Run(ctx context.Context) {
	s.startedAt = time.Now().UTC()

	SetHeaders(s.w.Header())
	s.w.WriteHeader(http.StatusOK)

	s.refresh = poller.New(
		poller.Config{Interval: s.cfg.RefreshInterval, Timeout: s.cfg.RefreshTimeout},
		func(ctx context.Context) (*model.OrderbookSnapshot, error) {
			return s.books.Fetch(ctx, s.marketID)
		},
		poller.HandlerFunc[*model.OrderbookSnapshot](func(snap *model.OrderbookSnapshot) error {
			if snap != nil {
				s.book.Store(snap)
			}
			return nil
		}),
		s.logger,
	)
	s.refresh.Start(ctx)

	s.unsubscribe = s.feed.Subscribe(s.marketID, feed.HandlerFunc(s.handleMessage))

	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	defer s.cleanup()

	s.logger.Info("stream session started")
	if !s.emit(newReadyEvent(s.marketID)) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.endReason = EndClientGone
			return

		case tick := <-s.ticks:
			if !s.emitTick(tick) {
				return
			}

		case <-heartbeat.C:
			if !s.drainTicks() {
				return
			}
			if !s.emit(newPingEvent()) {
				return
			}
		}
	}
}

// handleMessage runs on the feed dispatcher goroutine and must not block.
func (s *Session) handleMessage(msg feed.Message) {
	if s.closed.Load() {
		return
	}
	tick, ok := msg.Tick()
	if !ok {
		return
	}

	select {
	case s.ticks <- tick:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			s.logger.Warn("session tick buffer full, dropping", "dropped", n)
		}
	}
}

// drainTicks writes every pending tick without blocking.
func (s *Session) drainTicks() bool {
	for {
		select {
		case tick := <-s.ticks:
			if !s.emitTick(tick) {
				return false
			}
		default:
			return true
		}
	}
}

func (s *Session) emitTick(tick model.Tick) bool {
	s.ring.Push(tick)

	book := optional.None[model.OrderbookSnapshot]()
	if snap := s.book.Load(); snap != nil {
		book = optional.Some(*snap)
	}

	ev := TickEvent{
		Type:     EventTick,
		MarketID: s.marketID,
		Price:    tick.Price,
		Amount:   tick.Amount,
		Smart:    pulse.Compute(s.ring.Last(s.cfg.PulseWindow), book),
		TS:       time.Now().UnixMilli(),
	}
	if !s.emit(ev) {
		return false
	}
	s.sent.Add(1)
	return true
}

// emit writes one data frame and flushes it. Any failure closes the session.
func (s *Session) emit(v any) bool {
	if s.closed.Load() {
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode event", "err", err)
		return true
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.fail(err)
		return false
	}
	if err := s.rc.Flush(); err != nil {
		s.fail(err)
		return false
	}
	return true
}

func (s *Session) fail(err error) {
	s.closed.Store(true)
	if s.endReason == "" {
		s.endReason = EndWriteFailed
	}
	s.logger.Debug("stream write failed", "err", err)
}

// cleanup stops the refresh poller, unsubscribes and records the session. Runs once.
func (s *Session) cleanup() {
	s.cleanOnce.Do(func() {
		s.closed.Store(true)

		if s.unsubscribe != nil {
			s.unsubscribe()
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout+time.Second)
		if err := s.refresh.Stop(ctx); err != nil {
			s.logger.Warn("orderbook refresh did not stop", "err", err)
		}
		cancel()

		if s.endReason == "" {
			s.endReason = EndClientGone
		}

		rec := model.SessionRecord{
			SessionID:    s.id,
			MarketID:     s.marketID,
			StartedAt:    s.startedAt,
			EndedAt:      time.Now().UTC(),
			TicksSent:    s.sent.Load(),
			TicksDropped: s.dropped.Load(),
			EndReason:    s.endReason,
		}
		if s.recorder != nil {
			s.recorder.Record(rec)
		}

		s.logger.Info("stream session ended",
			"reason", rec.EndReason,
			"ticks_sent", rec.TicksSent,
			"ticks_dropped", rec.TicksDropped,
			"duration", rec.EndedAt.Sub(rec.StartedAt),
		)
	})
}

// Stats reports the session's counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ID:           s.id,
		MarketID:     s.marketID,
		TicksSent:    s.sent.Load(),
		TicksDropped: s.dropped.Load(),
		Ring:         s.ring.Stats(),
	}
}

// SessionStats contains session statistics.
type SessionStats struct {
	ID           string
	MarketID     string
	TicksSent    int64
	TicksDropped int64
	Ring         RingStats
}
