// Package streamclient consumes the market trade streams served by this service,
// keeping one reconnecting connection per market.
package streamclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/veithly/PolyAlpha/internal/model"
	"github.com/veithly/PolyAlpha/internal/stream"
)

// Backoff bounds.
const (
	BackoffStep = 2 * time.Second
	BackoffMax  = 30 * time.Second
)

// Backoff returns the wait before reconnecting after the given attempt: min(30s, 2s*(attempt+1)).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt+1 >= int(BackoffMax/BackoffStep) {
		return BackoffMax
	}
	return BackoffStep * time.Duration(attempt+1)
}

// Update is one tick delivered to the caller.
type Update struct {
	MarketID string
	Price    float64
	Amount   float64
	Smart    model.SmartPulse
	TS       time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for stream requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBackoff replaces the reconnect delay function.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *Client) {
		c.backoff = fn
	}
}

// Client watches markets and reconnects each one independently.
type Client struct {
	baseURL    string
	onUpdate   func(Update)
	httpClient *http.Client
	logger     *slog.Logger
	backoff    func(attempt int) time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	attempts map[string]int
	watching map[string]context.CancelFunc
	closed   bool
}

// New creates a Client for the service at baseURL (e.g. http://localhost:8080).
func New(baseURL string, onUpdate func(Update), opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		onUpdate:   onUpdate,
		httpClient: &http.Client{},
		logger:     slog.Default(),
		backoff:    Backoff,
		ctx:        ctx,
		cancel:     cancel,
		attempts:   make(map[string]int),
		watching:   make(map[string]context.CancelFunc),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Watch starts a reconnecting consumer for every id not already watched.
func (c *Client) Watch(marketIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	for _, id := range marketIDs {
		if id == "" {
			continue
		}
		if _, ok := c.watching[id]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(c.ctx)
		c.watching[id] = cancel

		c.wg.Add(1)
		go c.run(ctx, id)
	}
}

// Unwatch stops the consumers for the given ids and forgets their attempt
// counts. Other markets keep streaming. Unknown ids are ignored.
func (c *Client) Unwatch(marketIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range marketIDs {
		cancel, ok := c.watching[id]
		if !ok {
			continue
		}
		cancel()
		delete(c.watching, id)
		delete(c.attempts, id)
	}
}

// Watching returns the watched market ids in sorted order.
func (c *Client) Watching() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.watching))
	for id := range c.watching {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Attempts returns how many times the market's stream has disconnected.
func (c *Client) Attempts(marketID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[marketID]
}

// Close tears down every connection and waits. No reconnects follow.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// run consumes one market until its context ends through Unwatch or Close.
func (c *Client) run(ctx context.Context, marketID string) {
	defer c.wg.Done()

	for {
		err := c.consume(ctx, marketID)

		// Unwatch cancels under mu, so a stopped market never records an attempt.
		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		attempt := c.attempts[marketID]
		c.attempts[marketID] = attempt + 1
		c.mu.Unlock()

		delay := c.backoff(attempt)
		c.logger.Warn("market stream disconnected, reconnecting",
			"market_id", marketID,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// consume holds one stream connection open and dispatches its events.
func (c *Client) consume(ctx context.Context, marketID string) error {
	u := c.baseURL + "/api/markets/stream?marketId=" + url.QueryEscape(marketID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				c.dispatch(marketID, data.Bytes())
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return fmt.Errorf("stream closed")
}

// dispatch forwards tick events for marketID. Anything else is dropped.
func (c *Client) dispatch(marketID string, payload []byte) {
	var ev stream.TickEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return
	}
	if ev.Type != stream.EventTick || ev.MarketID != marketID {
		return
	}

	c.onUpdate(Update{
		MarketID: ev.MarketID,
		Price:    ev.Price,
		Amount:   ev.Amount,
		Smart:    ev.Smart,
		TS:       time.UnixMilli(ev.TS),
	})
}
