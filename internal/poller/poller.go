package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Fetcher produces one value per poll.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Handler receives successfully fetched values.
type Handler[T any] interface {
	Handle(value T) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc[T any] func(T) error

func (f HandlerFunc[T]) Handle(v T) error {
	return f(v)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval
	Timeout  time.Duration // Per-fetch timeout (0 = none)
	MaxPolls int           // Stop after this many polls (0 = unlimited)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 20 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically calls a Fetcher.
type Poller[T any] struct {
	cfg     Config
	fetch   Fetcher[T]
	handler Handler[T]
	onError func(error)
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}

	polls  atomic.Int64
	errors atomic.Int64
}

// New creates a new Poller. handler may be nil.
func New[T any](cfg Config, fetch Fetcher[T], handler Handler[T], logger *slog.Logger) *Poller[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Poller[T]{
		cfg:     cfg,
		fetch:   fetch,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// OnError registers fn to be called with every failed fetch. Must be called before Start.
func (p *Poller[T]) OnError(fn func(error)) *Poller[T] {
	p.onError = fn
	return p
}

// Start begins the polling loop. Subsequent calls are no-ops.
func (p *Poller[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Debug("poller started",
		"interval", p.cfg.Interval,
		"max_polls", p.cfg.MaxPolls,
	)

	return nil
}

// Stop cancels the loop and waits for an in-flight poll to finish.
func (p *Poller[T]) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the loop exits, either stopped or after MaxPolls.
func (p *Poller[T]) Done() <-chan struct{} {
	return p.done
}

// Polls returns the number of completed polls.
func (p *Poller[T]) Polls() int64 {
	return p.polls.Load()
}

// Errors returns the number of failed polls.
func (p *Poller[T]) Errors() int64 {
	return p.errors.Load()
}

// run is the main polling loop.
func (p *Poller[T]) run() {
	defer p.wg.Done()
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	if !p.pollOnce() {
		return
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if !p.pollOnce() {
				return
			}
		}
	}
}

// pollOnce fetches and handles one value. It reports whether polling should continue.
func (p *Poller[T]) pollOnce() bool {
	if p.ctx.Err() != nil {
		return false
	}

	ctx, cancel := p.ctx, context.CancelFunc(func() {})
	if p.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(p.ctx, p.cfg.Timeout)
	}
	v, err := p.fetch(ctx)
	cancel()

	n := p.polls.Add(1)

	switch {
	case err != nil:
		if p.ctx.Err() != nil {
			return false
		}
		p.errors.Add(1)
		p.logger.Warn("poll failed", "poll", n, "err", err)
		if p.onError != nil {
			p.onError(err)
		}
	case p.handler != nil:
		if err := p.handler.Handle(v); err != nil {
			p.logger.Warn("poll handler failed", "poll", n, "err", err)
		}
	}

	return p.cfg.MaxPolls <= 0 || n < int64(p.cfg.MaxPolls)
}
