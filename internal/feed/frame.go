package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// marketIDKeys are the frame fields that may carry the market identifier, in priority order.
var marketIDKeys = []string{"market_id", "marketId", "condition_id"}

// ParseFrame decodes one inbound frame. A frame without a recognizable market id parses
// successfully with an empty MarketID.
func ParseFrame(data []byte, receivedAt time.Time) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}

	return Message{
		MarketID:   extractMarketID(fields),
		Fields:     fields,
		ReceivedAt: receivedAt,
	}, nil
}

// extractMarketID returns the first non-empty string among marketIDKeys.
func extractMarketID(fields map[string]json.RawMessage) string {
	for _, key := range marketIDKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			continue
		}
		if id != "" {
			return id
		}
	}
	return ""
}
