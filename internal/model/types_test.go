package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   float64
		wantOK bool
	}{
		{"number", `0.45`, 0.45, true},
		{"integer", `2000`, 2000, true},
		{"numeric string", `"0.55"`, 0.55, true},
		{"exponent", `1e3`, 1000, true},
		{"padded", ` 12 `, 12, true},
		{"null", `null`, 0, false},
		{"empty", ``, 0, false},
		{"bool", `true`, 0, false},
		{"word", `"abc"`, 0, false},
		{"empty string", `""`, 0, false},
		{"object", `{"v":1}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(json.RawMessage(tt.raw))
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTickFromFields(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		want   Tick
		wantOK bool
	}{
		{"size and price", `{"size":100,"price":0.4}`, Tick{Amount: 100, Price: 0.4}, true},
		{"amount fallback", `{"amount":"250","price":"0.6"}`, Tick{Amount: 250, Price: 0.6}, true},
		{"last_price fallback", `{"size":10,"last_price":0.33}`, Tick{Amount: 10, Price: 0.33}, true},
		{"size preferred over amount", `{"size":5,"amount":9,"price":0.5}`, Tick{Amount: 5, Price: 0.5}, true},
		{"missing price", `{"size":10}`, Tick{}, false},
		{"missing amount", `{"price":0.5}`, Tick{}, false},
		{"non-numeric", `{"size":"lots","price":0.5}`, Tick{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(tt.frame), &fields))

			got, ok := TickFromFields(fields)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarketDetail_IsOpen(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		detail MarketDetail
		want   bool
	}{
		{"active no end date", MarketDetail{Active: true}, true},
		{"closed", MarketDetail{Active: true, Closed: true}, false},
		{"inactive", MarketDetail{Active: false}, false},
		{"archived", MarketDetail{Active: true, Archived: true}, false},
		{"ended recently", MarketDetail{Active: true, EndDate: now.Add(-time.Hour)}, true},
		{"ended long ago", MarketDetail{Active: true, EndDate: now.Add(-13 * time.Hour)}, false},
		{"future end", MarketDetail{Active: true, EndDate: now.Add(48 * time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.detail.IsOpen(now))
		})
	}
}

func TestOrderbookSnapshot_Levels(t *testing.T) {
	s := OrderbookSnapshot{
		Bids: []PriceLevel{{Price: 0.45, Size: 2000}, {Price: 0.44, Size: 1500}},
		Asks: []PriceLevel{{Price: 0.55, Size: 1000}},
	}
	assert.Equal(t, 3, s.Levels())
	assert.Equal(t, 900.0, s.Bids[0].Notional())
}
