package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/veithly/PolyAlpha/internal/model"
)

// ErrEmptyMarketID is returned when a lookup is attempted without a market id.
var ErrEmptyMarketID = errors.New("market id is required")

// GetOrderbook fetches and normalizes the orderbook for a market from the CLOB.
func (c *Client) GetOrderbook(ctx context.Context, marketID string) (*model.OrderbookSnapshot, error) {
	if marketID == "" {
		return nil, ErrEmptyMarketID
	}

	var resp OrderbookResponse
	if err := c.getJSON(ctx, c.clobURL+"/markets/"+url.PathEscape(marketID), &resp); err != nil {
		return nil, fmt.Errorf("get orderbook %s: %w", marketID, err)
	}

	bids, asks := resp.Bids, resp.Asks
	if resp.Orderbook != nil {
		if resp.Orderbook.Bids != nil {
			bids = resp.Orderbook.Bids
		}
		if resp.Orderbook.Asks != nil {
			asks = resp.Orderbook.Asks
		}
	}

	return &model.OrderbookSnapshot{
		MarketID:  marketID,
		Bids:      NormalizeLevels(bids),
		Asks:      NormalizeLevels(asks),
		FetchedAt: time.Now().UTC(),
	}, nil
}
