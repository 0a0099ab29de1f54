package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/veithly/PolyAlpha/internal/model"
)

// NormalizeLevels converts raw orderbook entries into price levels.
// Entries are either [price, size] tuples or objects with price and size (or amount).
// Entries whose price or size fail to coerce are dropped.
func NormalizeLevels(entries []json.RawMessage) []model.PriceLevel {
	levels := make([]model.PriceLevel, 0, len(entries))
	for _, raw := range entries {
		if level, ok := normalizeLevel(raw); ok {
			levels = append(levels, level)
		}
	}
	return levels
}

func normalizeLevel(raw json.RawMessage) (model.PriceLevel, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return model.PriceLevel{}, false
	}

	switch raw[0] {
	case '[':
		var tuple []json.RawMessage
		if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) < 2 {
			return model.PriceLevel{}, false
		}
		price, ok := model.ParseNumber(tuple[0])
		if !ok {
			return model.PriceLevel{}, false
		}
		size, ok := model.ParseNumber(tuple[1])
		if !ok {
			return model.PriceLevel{}, false
		}
		return model.PriceLevel{Price: price, Size: size}, true

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return model.PriceLevel{}, false
		}
		price, ok := model.ParseNumber(fields["price"])
		if !ok {
			return model.PriceLevel{}, false
		}
		size, ok := model.ParseNumber(fields["size"])
		if !ok {
			size, ok = model.ParseNumber(fields["amount"])
		}
		if !ok {
			return model.PriceLevel{}, false
		}
		return model.PriceLevel{Price: price, Size: size}, true
	}

	return model.PriceLevel{}, false
}

// firstNumber returns the first candidate that coerces, or 0.
func firstNumber(candidates ...json.RawMessage) float64 {
	for _, raw := range candidates {
		if v, ok := model.ParseNumber(raw); ok {
			return v
		}
	}
	return 0
}

// ParseTimestamp parses an ISO 8601 timestamp. Returns the zero time for empty or invalid input.
func ParseTimestamp(iso string) time.Time {
	if iso == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Try date-only and zone-less forms
		for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
			if t, err = time.Parse(layout, iso); err == nil {
				return t.UTC()
			}
		}
		return time.Time{}
	}

	return t.UTC()
}

// ToMarketDetail converts a Gamma market into the service model.
func (m GammaMarket) ToMarketDetail() model.MarketDetail {
	end := m.EndDateISO
	if end == "" {
		end = m.EndDateISOAlt
	}
	if end == "" {
		end = m.EndDate
	}

	return model.MarketDetail{
		ID:          m.ID,
		Question:    m.Question,
		Volume24h:   firstNumber(m.Volume24h, m.Volume24hr, m.Volume),
		TotalVolume: firstNumber(m.VolumeNum, m.Volume),
		Liquidity:   firstNumber(m.Liquidity, m.LiquidityNum),
		Active:      m.Active == nil || *m.Active,
		Closed:      m.Closed,
		Archived:    m.Archived,
		EndDate:     ParseTimestamp(end),
	}
}
