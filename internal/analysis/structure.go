package analysis

import (
	"time"

	"smc-trading-bot/internal/market"
)

// Trend classifies market structure.
type Trend string

const (
	Uptrend   Trend = "UPTREND"
	Downtrend Trend = "DOWNTREND"
	Ranging   Trend = "RANGING"
)

// SwingPoint is a local price extremum relative to the lookback window.
type SwingPoint struct {
	Price float64   `json:"price"`
	Index int       `json:"index"`
	Time  time.Time `json:"time"`
}

// MarketStructure is a full snapshot of trend state. It is recomputed from
// scratch on every call, never patched incrementally.
type MarketStructure struct {
	Trend      Trend        `json:"trend"`
	SwingHighs []SwingPoint `json:"swing_highs"`
	SwingLows  []SwingPoint `json:"swing_lows"`
	LastBreak  *time.Time   `json:"last_break,omitempty"`  // Last structural break
	LastChange *time.Time   `json:"last_change,omitempty"` // Last character change
}

// StructureAnalyzer identifies swing points, trend, structural breaks and
// character changes.
type StructureAnalyzer struct {
	lookback int
}

// NewStructureAnalyzer creates an analyzer with the given swing lookback
// (candles checked on each side of a candidate swing point).
func NewStructureAnalyzer(lookback int) *StructureAnalyzer {
	if lookback < 1 {
		lookback = 5
	}
	return &StructureAnalyzer{lookback: lookback}
}

// Identify builds a structure snapshot. Windows shorter than twice the
// lookback classify as ranging with no swing points.
func (a *StructureAnalyzer) Identify(candles []market.Candle) MarketStructure {
	if len(candles) < a.lookback*2 {
		return MarketStructure{Trend: Ranging}
	}

	highs := a.findSwingHighs(candles)
	lows := a.findSwingLows(candles)

	return MarketStructure{
		Trend:      a.classifyTrend(highs, lows),
		SwingHighs: highs,
		SwingLows:  lows,
	}
}

func (a *StructureAnalyzer) findSwingHighs(candles []market.Candle) []SwingPoint {
	var swings []SwingPoint
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
			swings = append(swings, SwingPoint{Price: high, Index: i, Time: candles[i].Time})
		}
	}
	return swings
}

func (a *StructureAnalyzer) findSwingLows(candles []market.Candle) []SwingPoint {
	var swings []SwingPoint
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
			swings = append(swings, SwingPoint{Price: low, Index: i, Time: candles[i].Time})
		}
	}
	return swings
}

// classifyTrend looks at the last three swing highs and lows (or fewer when
// fewer exist): strictly rising on both sides is an uptrend, strictly
// falling on both sides a downtrend, anything else ranging.
func (a *StructureAnalyzer) classifyTrend(highs, lows []SwingPoint) Trend {
	if len(highs) < 2 || len(lows) < 2 {
		return Ranging
	}

	recentHighs := lastN(highs, 3)
	recentLows := lastN(lows, 3)

	if strictlyRising(recentHighs) && strictlyRising(recentLows) {
		return Uptrend
	}
	if strictlyFalling(recentHighs) && strictlyFalling(recentLows) {
		return Downtrend
	}
	return Ranging
}

func lastN(points []SwingPoint, n int) []SwingPoint {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func strictlyRising(points []SwingPoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Price <= points[i-1].Price {
			return false
		}
	}
	return true
}

func strictlyFalling(points []SwingPoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Price >= points[i-1].Price {
			return false
		}
	}
	return true
}

// DetectBreak reports a structural break: in an uptrend, the latest close
// exceeding the highest swing high before the most recent one; mirrored on
// swing lows in a downtrend. Ranging structures never break.
func (a *StructureAnalyzer) DetectBreak(candles []market.Candle) *time.Time {
	structure := a.Identify(candles)
	if structure.Trend == Ranging || len(candles) < 2 {
		return nil
	}

	latest := candles[len(candles)-1]

	switch structure.Trend {
	case Uptrend:
		if len(structure.SwingHighs) == 0 {
			return nil
		}
		prior := priorExtreme(structure.SwingHighs, true)
		if latest.Close > prior {
			t := latest.Time
			return &t
		}
	case Downtrend:
		if len(structure.SwingLows) == 0 {
			return nil
		}
		prior := priorExtreme(structure.SwingLows, false)
		if latest.Close < prior {
			t := latest.Time
			return &t
		}
	}

	return nil
}

// priorExtreme returns the max (or min) swing price excluding the most
// recent swing; with a single swing that swing itself is used.
func priorExtreme(points []SwingPoint, max bool) float64 {
	if len(points) == 1 {
		return points[0].Price
	}
	extreme := points[0].Price
	for _, p := range points[:len(points)-1] {
		if max && p.Price > extreme {
			extreme = p.Price
		}
		if !max && p.Price < extreme {
			extreme = p.Price
		}
	}
	return extreme
}

// DetectCharacterChange reports trend exhaustion: in an uptrend, the latest
// close falling below the second-most-recent swing low; in a downtrend,
// rising above the second-most-recent swing high. Needs at least two swing
// points of the relevant kind.
func (a *StructureAnalyzer) DetectCharacterChange(candles []market.Candle) *time.Time {
	structure := a.Identify(candles)
	if structure.Trend == Ranging || len(candles) < 2 {
		return nil
	}

	latest := candles[len(candles)-1]

	switch structure.Trend {
	case Uptrend:
		if len(structure.SwingLows) < 2 {
			return nil
		}
		priorLow := structure.SwingLows[len(structure.SwingLows)-2]
		if latest.Close < priorLow.Price {
			t := latest.Time
			return &t
		}
	case Downtrend:
		if len(structure.SwingHighs) < 2 {
			return nil
		}
		priorHigh := structure.SwingHighs[len(structure.SwingHighs)-2]
		if latest.Close > priorHigh.Price {
			t := latest.Time
			return &t
		}
	}

	return nil
}
