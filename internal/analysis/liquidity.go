package analysis

import (
	"time"

	"smc-trading-bot/internal/market"
)

// LiquiditySide tells which side of price the resting stops sit on.
type LiquiditySide string

const (
	Buyside  LiquiditySide = "BUYSIDE"  // Above price, at swing highs
	Sellside LiquiditySide = "SELLSIDE" // Below price, at swing lows
)

// LiquidityLevel is a swing extreme where stop orders cluster. Only sweep
// detection mutates it (Swept flag and timestamp).
type LiquidityLevel struct {
	Price    float64       `json:"price"`
	Side     LiquiditySide `json:"side"`
	Strength int           `json:"strength"` // Number of touches
	Swept    bool          `json:"swept"`
	SweptAt  *time.Time    `json:"swept_at,omitempty"`
}

// LiquidityAnalyzer finds liquidity levels and sweep events.
type LiquidityAnalyzer struct {
	lookback       int
	sweepThreshold float64 // Price offset beyond a level that counts as a pierce
}

// NewLiquidityAnalyzer creates an analyzer. sweepThreshold is in price
// units; the swing lookback matches the structure analyzer's default.
func NewLiquidityAnalyzer(sweepThreshold float64) *LiquidityAnalyzer {
	return &LiquidityAnalyzer{lookback: 5, sweepThreshold: sweepThreshold}
}

// IdentifyLevels returns buyside levels at swing highs and sellside levels
// at swing lows, each with strength 1 (a single touch).
func (a *LiquidityAnalyzer) IdentifyLevels(candles []market.Candle) []LiquidityLevel {
	if len(candles) < a.lookback*2 {
		return nil
	}

	var levels []LiquidityLevel

	for i := a.lookback; i < len(candles)-a.lookback; i++ {
		high := candles[i].High
		isSwing := true
		for j := 1; j <= a.lookback; j++ {
			if candles[i-j].High >= high || candles[i+j].High >= high {
				isSwing = false
				break
			}
		}
		if isSwing {
			levels = append(levels, LiquidityLevel{Price: high, Side: Buyside, Strength: 1})
		}
	}

	for i := a.lookback; i < len(candles)-a.lookback; i++ {
		low := candles[i].Low
		isSwing := true
		for j := 1; j <= a.lookback; j++ {
			if candles[i-j].Low <= low || candles[i+j].Low <= low {
				isSwing = false
				break
			}
		}
		if isSwing {
			levels = append(levels, LiquidityLevel{Price: low, Side: Sellside, Strength: 1})
		}
	}

	return levels
}

// DetectSweep scans the most recent five candles for a sweep of the level:
// a pierce beyond the level by the threshold with the close back on the
// original side. Returns the first qualifying candle's time.
func (a *LiquidityAnalyzer) DetectSweep(candles []market.Candle, level LiquidityLevel) *time.Time {
	if len(candles) < 2 {
		return nil
	}

	recent := candles
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	for _, candle := range recent {
		switch level.Side {
		case Buyside:
			if candle.High > level.Price+a.sweepThreshold && candle.Close < level.Price {
				t := candle.Time
				return &t
			}
		case Sellside:
			if candle.Low < level.Price-a.sweepThreshold && candle.Close > level.Price {
				t := candle.Time
				return &t
			}
		}
	}

	return nil
}

// MarkSwept applies sweep detection to a batch of levels, setting the
// Swept flag and timestamp on each level that was taken.
func (a *LiquidityAnalyzer) MarkSwept(levels []LiquidityLevel, candles []market.Candle) {
	for i := range levels {
		if levels[i].Swept {
			continue
		}
		if at := a.DetectSweep(candles, levels[i]); at != nil {
			levels[i].Swept = true
			levels[i].SweptAt = at
		}
	}
}

// IsBuysideSwept reports whether any buyside level was swept recently.
func (a *LiquidityAnalyzer) IsBuysideSwept(candles []market.Candle) bool {
	for _, level := range a.IdentifyLevels(candles) {
		if level.Side == Buyside && a.DetectSweep(candles, level) != nil {
			return true
		}
	}
	return false
}

// IsSellsideSwept reports whether any sellside level was swept recently.
func (a *LiquidityAnalyzer) IsSellsideSwept(candles []market.Candle) bool {
	for _, level := range a.IdentifyLevels(candles) {
		if level.Side == Sellside && a.DetectSweep(candles, level) != nil {
			return true
		}
	}
	return false
}
