package model

import "time"

// -----------------------------------------------------------------------------
// Feed Types
// -----------------------------------------------------------------------------

// Tick is one observed trade from the upstream feed.
type Tick struct {
	Amount float64 `json:"amount"` // Shares traded
	Price  float64 `json:"price"`  // Trade price (0-1)
}

// -----------------------------------------------------------------------------
// Orderbook Types
// -----------------------------------------------------------------------------

// PriceLevel is a single price level in an orderbook.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Notional returns size * price in USD.
func (l PriceLevel) Notional() float64 {
	return l.Size * l.Price
}

// OrderbookSnapshot is a full bid/ask ledger for one market.
// A snapshot is replaced wholesale on refresh and never mutated.
type OrderbookSnapshot struct {
	MarketID  string       `json:"marketId"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// Levels returns the total number of bid and ask levels.
func (s OrderbookSnapshot) Levels() int {
	return len(s.Bids) + len(s.Asks)
}

// -----------------------------------------------------------------------------
// Derived Types
// -----------------------------------------------------------------------------

// SmartPulse is the heuristic score computed over recent ticks and the latest book.
type SmartPulse struct {
	InflowUSD     int64   `json:"inflowUsd"`
	WhaleScore    float64 `json:"whaleScore"`
	Trades        int     `json:"trades"`
	BookImbalance float64 `json:"bookImbalance"`
	BookDepthUSD  int64   `json:"bookDepthUsd"`
}

// MarketDetail is the subset of Gamma market metadata the service consumes.
type MarketDetail struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Volume24h   float64   `json:"volume24h"`
	TotalVolume float64   `json:"totalVolume"`
	Liquidity   float64   `json:"liquidity"`
	Active      bool      `json:"active"`
	Closed      bool      `json:"closed"`
	Archived    bool      `json:"archived"`
	EndDate     time.Time `json:"endDate,omitempty"`
}

// marketStaleAfter is how long past its end date a market is still served.
const marketStaleAfter = 12 * time.Hour

// IsOpen reports whether the market is still tradeable at now.
// A missing end date is treated as open.
func (m MarketDetail) IsOpen(now time.Time) bool {
	if m.Closed || !m.Active || m.Archived {
		return false
	}
	if !m.EndDate.IsZero() && m.EndDate.Before(now.Add(-marketStaleAfter)) {
		return false
	}
	return true
}

// SmartMoney is the volume/liquidity based smart-money estimate for one market.
type SmartMoney struct {
	MarketID      string    `json:"marketId"`
	InflowUSD     int64     `json:"inflowUsd"`
	DepthDeltaUSD int64     `json:"depthDeltaUsd"`
	WhaleScore    float64   `json:"whaleScore"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Note          string    `json:"note"`
}

// -----------------------------------------------------------------------------
// Audit Types
// -----------------------------------------------------------------------------

// SessionRecord summarizes one finished streaming session.
type SessionRecord struct {
	SessionID    string    `json:"sessionId"`
	MarketID     string    `json:"marketId"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	TicksSent    int64     `json:"ticksSent"`
	TicksDropped int64     `json:"ticksDropped"`
	EndReason    string    `json:"endReason"`
}
