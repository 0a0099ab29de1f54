// Package orderbook fetches orderbook snapshots for the streaming sessions.
//
// Concurrent fetches for one market share a single upstream request, outbound
// requests are rate limited, and snapshots can be shared through a cache.
package orderbook

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/veithly/PolyAlpha/internal/api"
	"github.com/veithly/PolyAlpha/internal/model"
)

// ErrEmptyMarketID is returned for a fetch without a market id.
var ErrEmptyMarketID = api.ErrEmptyMarketID

// Fetcher returns the current orderbook for a market.
// On failure it returns a nil snapshot and an error; callers keep their previous snapshot.
type Fetcher interface {
	Fetch(ctx context.Context, marketID string) (*model.OrderbookSnapshot, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, marketID string) (*model.OrderbookSnapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, marketID string) (*model.OrderbookSnapshot, error) {
	return f(ctx, marketID)
}

// Cache stores snapshots between fetches. A miss reports (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, marketID string) (*model.OrderbookSnapshot, bool, error)
	Set(ctx context.Context, marketID string, snap *model.OrderbookSnapshot) error
}

// Upstream is the REST call the Source wraps.
type Upstream interface {
	GetOrderbook(ctx context.Context, marketID string) (*model.OrderbookSnapshot, error)
}

// Config configures a Source.
type Config struct {
	RatePerSecond float64       // Outbound requests per second (0 = unlimited)
	Burst         int
	FetchTimeout  time.Duration // Bound on a shared upstream fetch, independent of any caller
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RatePerSecond: 5,
		Burst:         10,
		FetchTimeout:  10 * time.Second,
	}
}

// Source is the production Fetcher.
type Source struct {
	upstream Upstream
	cache    Cache
	limiter  *rate.Limiter
	timeout  time.Duration
	group    singleflight.Group
	logger   *slog.Logger
}

var _ Fetcher = (*Source)(nil)

// NewSource creates a Source. cache may be nil.
func NewSource(upstream Upstream, cache Cache, cfg Config, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().FetchTimeout
	}

	return &Source{
		upstream: upstream,
		cache:    cache,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  timeout,
		logger:   logger,
	}
}

// Fetch returns the snapshot for marketID from the cache or the CLOB.
func (s *Source) Fetch(ctx context.Context, marketID string) (*model.OrderbookSnapshot, error) {
	if marketID == "" {
		return nil, ErrEmptyMarketID
	}

	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx, marketID)
		if err != nil {
			s.logger.Warn("orderbook cache read failed", "market_id", marketID, "error", err)
		} else if ok {
			return snap, nil
		}
	}

	// The shared fetch is detached from whichever caller started it.
	ch := s.group.DoChan(marketID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		if err := s.limiter.Wait(fctx); err != nil {
			return nil, err
		}
		snap, err := s.upstream.GetOrderbook(fctx, marketID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(fctx, marketID, snap); err != nil {
				s.logger.Warn("orderbook cache write failed", "market_id", marketID, "error", err)
			}
		}
		return snap, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		s.logger.Debug("orderbook fetch failed", "market_id", marketID, "error", res.Err)
		return nil, res.Err
	}
	snap := res.Val.(*model.OrderbookSnapshot)

	return snap, nil
}
