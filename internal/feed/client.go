package feed

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one socket to the realtime data service. The Manager dials a
// fresh Client for every connection attempt.
type Client interface {
	Connect(ctx context.Context) error
	Close() error

	// Send writes one text frame.
	Send(data []byte) error

	// Messages delivers inbound frames stamped with their receive time.
	Messages() <-chan TimestampedMessage

	// Errors yields at most one error, after which the Client is unusable.
	Errors() <-chan error

	IsConnected() bool
}

type wsClient struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	inbox  chan TimestampedMessage
	failed chan error
	quit   chan struct{}

	// gorilla allows one concurrent writer
	sendMu sync.Mutex

	mu        sync.RWMutex
	open      bool
	shut      bool
	lastFrame time.Time

	dropped atomic.Int64
}

// NewClient returns an unconnected Client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	return &wsClient{
		cfg:    cfg,
		logger: logger,
		inbox:  make(chan TimestampedMessage, cfg.BufferSize),
		failed: make(chan error, 1),
		quit:   make(chan struct{}),
	}
}

// Connect dials the feed and starts the reader and, when PingInterval is set,
// the keepalive. A closed Client cannot be reconnected.
func (c *wsClient) Connect(ctx context.Context) error {
	if c.isShut() {
		return ErrAlreadyClosed
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, http.Header{})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.shut {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.open = true
	c.lastFrame = time.Now()
	c.mu.Unlock()

	conn.SetPingHandler(func(data string) error {
		c.markAlive(time.Now())
		return c.write(websocket.PongMessage, []byte(data))
	})
	conn.SetPongHandler(func(string) error {
		c.markAlive(time.Now())
		return nil
	})

	go c.pump()
	if c.cfg.PingInterval > 0 {
		go c.keepalive()
	}

	c.logger.Debug("feed socket open", "url", c.cfg.URL)
	return nil
}

// Close sends a normal-closure frame and releases the socket. Repeated calls return nil.
func (c *wsClient) Close() error {
	c.mu.Lock()
	if c.shut {
		c.mu.Unlock()
		return nil
	}
	c.shut = true
	c.open = false
	conn := c.conn
	c.mu.Unlock()

	close(c.quit)
	if conn == nil {
		return nil
	}

	c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func (c *wsClient) Send(data []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.write(websocket.TextMessage, data)
}

func (c *wsClient) Messages() <-chan TimestampedMessage { return c.inbox }

func (c *wsClient) Errors() <-chan error { return c.failed }

func (c *wsClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// write sends one frame of the given kind under the write deadline.
func (c *wsClient) write(kind int, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if c.cfg.WriteTimeout <= 0 {
		deadline = time.Now().Add(time.Second)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	switch kind {
	case websocket.TextMessage, websocket.BinaryMessage:
		conn.SetWriteDeadline(deadline)
		return conn.WriteMessage(kind, data)
	default:
		return conn.WriteControl(kind, data, deadline)
	}
}

func (c *wsClient) isShut() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shut
}

// markAlive records inbound traffic. Trade frames count as well as control
// frames, so a busy feed that never pings stays healthy.
func (c *wsClient) markAlive(at time.Time) {
	c.mu.Lock()
	c.lastFrame = at
	c.mu.Unlock()
}

func (c *wsClient) silence() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.lastFrame)
}

// report delivers the terminal error unless Close already ran.
func (c *wsClient) report(err error) {
	select {
	case <-c.quit:
		return
	default:
	}
	select {
	case c.failed <- err:
	default:
	}
}

// pump moves inbound frames to the inbox until the socket fails or closes.
// A full inbox drops the frame rather than stalling the reader.
func (c *wsClient) pump() {
	for {
		_, data, err := c.conn.ReadMessage()
		at := time.Now()
		if err != nil {
			c.mu.Lock()
			c.open = false
			c.mu.Unlock()
			c.report(err)
			return
		}
		c.markAlive(at)

		select {
		case c.inbox <- TimestampedMessage{Data: data, ReceivedAt: at}:
		case <-c.quit:
			return
		default:
			c.logger.Warn("inbound buffer full, frame dropped", "dropped_total", c.dropped.Add(1))
		}
	}
}

// keepalive pings every PingInterval and reports ErrStaleConnection once the
// socket has been silent for longer than PingTimeout.
func (c *wsClient) keepalive() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return
		case <-ticker.C:
		}

		if err := c.write(websocket.PingMessage, nil); err != nil {
			c.logger.Debug("keepalive ping failed", "error", err)
		}
		if c.cfg.PingTimeout <= 0 {
			continue
		}
		if quiet := c.silence(); quiet > c.cfg.PingTimeout {
			c.logger.Warn("feed silent, dropping connection", "silent_for", quiet, "limit", c.cfg.PingTimeout)
			c.report(ErrStaleConnection)
			return
		}
	}
}
