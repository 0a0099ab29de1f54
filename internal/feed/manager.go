package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ClientFactory builds the Client for one connection attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// Manager owns the process-wide upstream feed connection.
//
// Construct one Manager at startup and inject it wherever markets are subscribed.
type Manager struct {
	cfg       ManagerConfig
	logger    *slog.Logger
	registry  *Registry
	newClient ClientFactory

	state atomic.Int32

	mu     sync.Mutex
	client Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reconnects     atomic.Int64
	framesReceived atomic.Int64
	framesDropped  atomic.Int64
}

// NewManager creates a feed Manager. It does not connect until Start and the first Subscribe.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
	}
	m.registry = NewRegistry(m, logger)
	return m
}

// WithClientFactory replaces how connections are built. Must be called before Start.
func (m *Manager) WithClientFactory(f ClientFactory) *Manager {
	m.newClient = f
	return m
}

// Registry returns the subscription registry backed by this Manager.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Start binds the Manager to ctx. Connecting is deferred to EnsureConnected.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.logger.Info("feed manager started",
		"url", m.cfg.Client.URL,
		"reconnect_delay", m.cfg.ReconnectDelay,
	)
	return nil
}

// Stop closes the connection, cancels pending reconnects, and waits for goroutines.
func (m *Manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping feed manager")
	m.state.Store(int32(StateClosing))

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	c := m.client
	m.client = nil
	m.mu.Unlock()

	if c != nil {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, forcing close")
		return ctx.Err()
	}

	m.logger.Info("feed manager stopped")
	return nil
}

// Subscribe ensures the feed is connecting and registers handler for marketID.
func (m *Manager) Subscribe(marketID string, handler Handler) (unsubscribe func()) {
	m.EnsureConnected()
	return m.registry.Subscribe(marketID, handler)
}

// EnsureConnected starts a connection attempt unless one is open or in progress.
// Safe for concurrent use; at most one attempt runs at a time.
func (m *Manager) EnsureConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		m.logger.Warn("feed not started, ignoring connect request")
		return
	}
	if m.ctx.Err() != nil {
		return
	}
	if !m.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return
	}

	m.wg.Add(1)
	go m.connect(m.ctx)
}

// SendSubscribe writes the trades subscription for marketID to the open connection.
// It returns ErrNotStarted before Start and ErrNotConnected while no connection is open.
func (m *Manager) SendSubscribe(marketID string) error {
	m.mu.Lock()
	started := m.ctx != nil
	c := m.client
	m.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	if m.State() != StateOpen || c == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(NewSubscribeFrame(marketID))
	if err != nil {
		return fmt.Errorf("encode subscribe frame: %w", err)
	}
	if err := c.Send(data); err != nil {
		return fmt.Errorf("send subscribe %s: %w", marketID, err)
	}

	m.logger.Debug("subscribed", "market_id", marketID)
	return nil
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		State:          m.State().String(),
		Markets:        m.registry.Len(),
		Subscribers:    m.registry.TotalSubscribers(),
		Reconnects:     m.reconnects.Load(),
		FramesReceived: m.framesReceived.Load(),
		FramesDropped:  m.framesDropped.Load(),
	}
}

// connect performs one connection attempt and, on success, becomes the dispatcher
// for that connection until it fails.
func (m *Manager) connect(ctx context.Context) {
	defer m.wg.Done()

	c := m.newClient(m.cfg.Client, m.logger)
	if err := c.Connect(ctx); err != nil {
		c.Close()
		m.logger.Warn("feed connect failed", "url", m.cfg.Client.URL, "error", err)
		m.handleClosed()
		return
	}

	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		c.Close()
		return
	}
	m.client = c
	m.mu.Unlock()

	opened := false
	m.registry.Resync(func(ids []string) {
		if !m.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
			return
		}
		opened = true
		m.logger.Info("feed connected", "url", m.cfg.Client.URL, "markets", len(ids))
		m.resubscribe(ids)
	})
	if !opened {
		c.Close()
		return
	}

	m.dispatchLoop(ctx, c)
}

// resubscribe sends one subscribe frame per market.
func (m *Manager) resubscribe(ids []string) {
	for _, id := range ids {
		if err := m.SendSubscribe(id); err != nil {
			m.logger.Warn("resubscribe failed", "market_id", id, "error", err)
		}
	}
}

// dispatchLoop reads frames from c and fans them out until c fails or ctx ends.
func (m *Manager) dispatchLoop(ctx context.Context, c Client) {
	for {
		select {
		case <-ctx.Done():
			return

		case err := <-c.Errors():
			m.logger.Warn("feed connection error", "error", err)
			m.mu.Lock()
			if m.client == c {
				m.client = nil
			}
			m.mu.Unlock()
			c.Close()
			m.handleClosed()
			return

		case msg, ok := <-c.Messages():
			if !ok {
				return
			}
			m.handleFrame(msg)
		}
	}
}

// handleFrame parses one frame and dispatches it. Parse failures are dropped.
func (m *Manager) handleFrame(tm TimestampedMessage) {
	m.framesReceived.Add(1)

	msg, err := ParseFrame(tm.Data, tm.ReceivedAt)
	if err != nil {
		m.framesDropped.Add(1)
		m.logger.Warn("dropping unparseable frame", "error", err, "bytes", len(tm.Data))
		return
	}
	if msg.MarketID == "" {
		return
	}
	m.registry.Dispatch(msg)
}

// handleClosed moves to Disconnected and schedules exactly one reconnect.
func (m *Manager) handleClosed() {
	if !m.state.CompareAndSwap(int32(StateOpen), int32(StateDisconnected)) &&
		!m.state.CompareAndSwap(int32(StateConnecting), int32(StateDisconnected)) {
		return
	}

	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	m.reconnects.Add(1)
	m.logger.Warn("feed closed, retrying", "delay", m.cfg.ReconnectDelay)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
		case <-time.After(m.cfg.ReconnectDelay):
			m.EnsureConnected()
		}
	}()
}
