// Package signal synthesizes trade signals from multi-timeframe SMC
// analysis and validates them against risk thresholds.
package signal

import (
	"time"

	"smc-trading-bot/internal/analysis"
	"smc-trading-bot/internal/market"
)

// Side is the trade direction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderKind is the resting-order type placed at the entry level.
type OrderKind string

const (
	BuyLimit  OrderKind = "BUY_LIMIT"  // Buy on pullback to a level below price
	BuyStop   OrderKind = "BUY_STOP"   // Buy on breakout above price
	SellLimit OrderKind = "SELL_LIMIT" // Sell on rally to a level above price
	SellStop  OrderKind = "SELL_STOP"  // Sell on breakdown below price
)

// SetupType names which pattern produced the signal.
type SetupType string

const (
	SetupConfluence SetupType = "CONFLUENCE"
	SetupImbalance  SetupType = "FVG_ENTRY"
)

// Signal is an actionable trade candidate with full price levels. It is
// immutable once returned by the generator.
type Signal struct {
	ID            string                              `json:"id"`
	Symbol        string                              `json:"symbol"`
	Direction     Side                                `json:"direction"`
	OrderKind     OrderKind                           `json:"order_kind"`
	EntryPrice    float64                             `json:"entry_price"`
	StopLoss      float64                             `json:"stop_loss"`
	TakeProfit    float64                             `json:"take_profit"`
	Confidence    float64                             `json:"confidence"`
	SetupType     SetupType                           `json:"setup_type"`
	TimeframeBias map[market.Timeframe]analysis.Trend `json:"timeframe_bias"`
	Zones         []analysis.ConfluenceZone           `json:"zones"`
	CreatedAt     time.Time                           `json:"created_at"`
}

// RiskReward returns |target-entry| / |entry-stop|, or zero when risk is
// not positive.
func (s *Signal) RiskReward() float64 {
	risk := s.EntryPrice - s.StopLoss
	if risk < 0 {
		risk = -risk
	}
	if risk <= 0 {
		return 0
	}
	reward := s.TakeProfit - s.EntryPrice
	if reward < 0 {
		reward = -reward
	}
	return reward / risk
}
