package pulse

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/veithly/PolyAlpha/internal/model"
)

// WhaleThresholdUSD is the notional above which a trade or book level counts as a whale.
const WhaleThresholdUSD = 5000.0

// Compute scores a window of recent ticks and an optional orderbook snapshot.
//
// The whale score averages the trade and book whale ratios unconditionally, so a missing
// snapshot contributes a zero book ratio and halves the score.
func Compute(ticks []model.Tick, book optional.Option[model.OrderbookSnapshot]) model.SmartPulse {
	var inflow float64
	var whaleTrades int
	for _, t := range ticks {
		v := t.Amount * t.Price
		if !isFinite(v) {
			continue
		}
		inflow += v
		if v > WhaleThresholdUSD {
			whaleTrades++
		}
	}
	tradeWhaleRatio := float64(whaleTrades) / float64(max(len(ticks), 1))

	result := model.SmartPulse{
		InflowUSD: int64(math.Round(inflow)),
		Trades:    len(ticks),
	}

	var bookWhaleRatio float64
	if book.IsSome() {
		snap := book.Unwrap()
		bids, bidWhales := depth(snap.Bids)
		asks, askWhales := depth(snap.Asks)
		total := bids + asks

		result.BookDepthUSD = int64(math.Round(total))
		if total > 0 {
			result.BookImbalance = round2((bids - asks) / total)
		}
		bookWhaleRatio = float64(bidWhales+askWhales) / float64(max(snap.Levels(), 1))
	}

	result.WhaleScore = round2((tradeWhaleRatio + bookWhaleRatio) / 2)
	return result
}

// depth sums the notional of levels and counts whale-sized ones.
func depth(levels []model.PriceLevel) (total float64, whales int) {
	for _, l := range levels {
		v := l.Notional()
		if !isFinite(v) {
			continue
		}
		total += v
		if v > WhaleThresholdUSD {
			whales++
		}
	}
	return total, whales
}

func round2(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
