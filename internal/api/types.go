package api

import "encoding/json"

// OrderbookResponse from GET {clob}/markets/{id}.
// Levels may be nested under "orderbook" or sit at the top level.
type OrderbookResponse struct {
	Orderbook *BookSides        `json:"orderbook"`
	Bids      []json.RawMessage `json:"bids"`
	Asks      []json.RawMessage `json:"asks"`
}

// BookSides holds the raw bid and ask level entries.
type BookSides struct {
	Bids []json.RawMessage `json:"bids"`
	Asks []json.RawMessage `json:"asks"`
}

// GammaMarket is a market from the Gamma API. Numeric fields are kept raw
// because Gamma mixes numbers and numeric strings.
type GammaMarket struct {
	ID       string `json:"id"`
	Question string `json:"question"`

	Volume24h    json.RawMessage `json:"volume24h"`
	Volume24hr   json.RawMessage `json:"volume24hr"`
	Volume       json.RawMessage `json:"volume"`
	VolumeNum    json.RawMessage `json:"volumeNum"`
	Liquidity    json.RawMessage `json:"liquidity"`
	LiquidityNum json.RawMessage `json:"liquidityNum"`

	Active   *bool `json:"active"`
	Closed   bool  `json:"closed"`
	Archived bool  `json:"archived"`

	// End date (ISO 8601), under any of three keys
	EndDateISO    string `json:"endDateIso"`
	EndDateISOAlt string `json:"end_date_iso"`
	EndDate       string `json:"endDate"`
}

// gammaEnvelope covers the wrappers Gamma uses around a single market.
type gammaEnvelope struct {
	Market *json.RawMessage  `json:"market"`
	Data   []json.RawMessage `json:"data"`
	Events []json.RawMessage `json:"events"`
}
