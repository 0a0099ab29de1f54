package pulse

import (
	"math"
	"time"

	"github.com/veithly/PolyAlpha/internal/model"
)

// SmartMoneyNote is attached to every smart-money estimate.
const SmartMoneyNote = "Heuristic based on 24h volume vs liquidity; replace with real smart money feed when available."

// SmartMoney estimates smart-money flow from 24h volume against total volume and liquidity.
func SmartMoney(detail model.MarketDetail, now time.Time) model.SmartMoney {
	inflow := math.Max(0, math.Round(detail.Volume24h-detail.TotalVolume*0.01))

	var depthDelta float64
	if detail.Liquidity > 0 {
		depthDelta = math.Round(detail.Volume24h / math.Max(detail.Liquidity, 1) * 5000)
	}

	return model.SmartMoney{
		MarketID:      detail.ID,
		InflowUSD:     int64(inflow),
		DepthDeltaUSD: int64(depthDelta),
		WhaleScore:    round2(inflow / math.Max(detail.Liquidity, 1)),
		UpdatedAt:     now.UTC(),
		Note:          SmartMoneyNote,
	}
}
