package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/veithly/PolyAlpha/internal/model"
)

// ErrMarketNotFound is returned when Gamma has no open market for the id.
var ErrMarketNotFound = errors.New("market not found")

// GetMarket fetches a single open market from Gamma.
// Missing, closed, archived and long-expired markets all report ErrMarketNotFound.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*model.MarketDetail, error) {
	if marketID == "" {
		return nil, ErrEmptyMarketID
	}

	var payload json.RawMessage
	if err := c.getJSON(ctx, c.gammaURL+"/markets/"+url.PathEscape(marketID), &payload); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("get market %s: %w", marketID, ErrMarketNotFound)
		}
		return nil, fmt.Errorf("get market %s: %w", marketID, err)
	}

	market, ok := unwrapMarket(payload)
	if !ok {
		return nil, fmt.Errorf("get market %s: %w", marketID, ErrMarketNotFound)
	}

	detail := market.ToMarketDetail()
	if detail.ID == "" {
		detail.ID = marketID
	}
	if !detail.IsOpen(time.Now()) {
		return nil, fmt.Errorf("get market %s: %w", marketID, ErrMarketNotFound)
	}

	return &detail, nil
}

// unwrapMarket picks the market out of a Gamma response. The market may be
// wrapped in "market", be the first element of "data", be the bare payload, or
// fall back to the first of "events".
func unwrapMarket(payload json.RawMessage) (GammaMarket, bool) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return GammaMarket{}, false
	}

	var env gammaEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return GammaMarket{}, false
	}

	var candidates []json.RawMessage
	if env.Market != nil {
		candidates = append(candidates, *env.Market)
	}
	if len(env.Data) > 0 {
		candidates = append(candidates, env.Data[0])
	}
	candidates = append(candidates, payload)
	if len(env.Events) > 0 {
		candidates = append(candidates, env.Events[0])
	}

	for _, raw := range candidates {
		var m GammaMarket
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		if m.ID != "" || m.Question != "" {
			return m, true
		}
	}
	return GammaMarket{}, false
}
