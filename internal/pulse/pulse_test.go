package pulse

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"

	"github.com/veithly/PolyAlpha/internal/model"
)

func sampleTicks() []model.Tick {
	return []model.Tick{
		{Amount: 1000, Price: 0.4},
		{Amount: 2000, Price: 0.6},
	}
}

func sampleBook() model.OrderbookSnapshot {
	return model.OrderbookSnapshot{
		Bids: []model.PriceLevel{{Price: 0.45, Size: 2000}, {Price: 0.44, Size: 1500}},
		Asks: []model.PriceLevel{{Price: 0.55, Size: 1000}, {Price: 0.60, Size: 1200}},
	}
}

func TestCompute_TradesOnly(t *testing.T) {
	got := Compute(sampleTicks(), optional.None[model.OrderbookSnapshot]())

	assert.Equal(t, int64(1600), got.InflowUSD)
	assert.Equal(t, 2, got.Trades)
	assert.Equal(t, 0.0, got.BookImbalance)
	assert.Equal(t, int64(0), got.BookDepthUSD)
	assert.Equal(t, 0.0, got.WhaleScore)
}

func TestCompute_WithBook(t *testing.T) {
	got := Compute(sampleTicks(), optional.Some(sampleBook()))

	assert.Equal(t, int64(1600), got.InflowUSD)
	assert.Equal(t, int64(2830), got.BookDepthUSD)
	assert.Equal(t, 0.10, got.BookImbalance)
	assert.Equal(t, 0.0, got.WhaleScore)
}

func TestCompute_Empty(t *testing.T) {
	got := Compute(nil, optional.None[model.OrderbookSnapshot]())

	assert.Equal(t, model.SmartPulse{}, got)
}

func TestCompute_EmptyBook(t *testing.T) {
	got := Compute(sampleTicks(), optional.Some(model.OrderbookSnapshot{}))

	assert.Equal(t, int64(0), got.BookDepthUSD)
	assert.Equal(t, 0.0, got.BookImbalance)
}

func TestCompute_WhaleScore(t *testing.T) {
	ticks := []model.Tick{
		{Amount: 20000, Price: 0.5}, // 10000 notional
		{Amount: 100, Price: 0.5},
		{Amount: 100, Price: 0.5},
		{Amount: 100, Price: 0.5},
	}
	book := model.OrderbookSnapshot{
		Bids: []model.PriceLevel{{Price: 0.5, Size: 20000}},
		Asks: []model.PriceLevel{{Price: 0.5, Size: 10}},
	}

	t.Run("with book", func(t *testing.T) {
		got := Compute(ticks, optional.Some(book))
		// trade ratio 0.25, book ratio 0.5
		assert.Equal(t, 0.38, got.WhaleScore)
		assert.Equal(t, 1.0, got.BookImbalance)
	})

	t.Run("without book halves the score", func(t *testing.T) {
		got := Compute(ticks, optional.None[model.OrderbookSnapshot]())
		assert.Equal(t, 0.13, got.WhaleScore)
	})
}

func TestCompute_NegativeImbalance(t *testing.T) {
	book := model.OrderbookSnapshot{
		Bids: []model.PriceLevel{{Price: 0.5, Size: 100}},
		Asks: []model.PriceLevel{{Price: 0.5, Size: 300}},
	}
	got := Compute(nil, optional.Some(book))

	assert.Equal(t, -0.5, got.BookImbalance)
	assert.Equal(t, int64(200), got.BookDepthUSD)
}

func TestCompute_Pure(t *testing.T) {
	ticks := sampleTicks()
	book := sampleBook()

	first := Compute(ticks, optional.Some(book))
	second := Compute(ticks, optional.Some(book))

	assert.Equal(t, first, second)
	assert.Equal(t, sampleTicks(), ticks)
	assert.Equal(t, sampleBook(), book)
}

func TestSmartMoney(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		detail model.MarketDetail
		want   model.SmartMoney
	}{
		{
			name:   "typical",
			detail: model.MarketDetail{ID: "m1", Volume24h: 12000, TotalVolume: 200000, Liquidity: 50000},
			want: model.SmartMoney{
				MarketID:      "m1",
				InflowUSD:     10000,
				DepthDeltaUSD: 1200,
				WhaleScore:    0.2,
			},
		},
		{
			name:   "inflow floors at zero",
			detail: model.MarketDetail{ID: "m2", Volume24h: 100, TotalVolume: 1000000, Liquidity: 1000},
			want: model.SmartMoney{
				MarketID:      "m2",
				InflowUSD:     0,
				DepthDeltaUSD: 500,
				WhaleScore:    0,
			},
		},
		{
			name:   "no liquidity",
			detail: model.MarketDetail{ID: "m3", Volume24h: 500},
			want: model.SmartMoney{
				MarketID:      "m3",
				InflowUSD:     500,
				DepthDeltaUSD: 0,
				WhaleScore:    500,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SmartMoney(tt.detail, now)
			assert.Equal(t, tt.want.MarketID, got.MarketID)
			assert.Equal(t, tt.want.InflowUSD, got.InflowUSD)
			assert.Equal(t, tt.want.DepthDeltaUSD, got.DepthDeltaUSD)
			assert.Equal(t, tt.want.WhaleScore, got.WhaleScore)
			assert.Equal(t, now, got.UpdatedAt)
			assert.Equal(t, SmartMoneyNote, got.Note)
		})
	}
}
