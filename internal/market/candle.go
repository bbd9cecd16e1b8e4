// Package market defines the candle data model shared by all detectors.
package market

import (
	"fmt"
	"time"
)

// Timeframe identifies a chart timeframe.
type Timeframe string

const (
	H4  Timeframe = "H4"
	H1  Timeframe = "H1"
	M15 Timeframe = "M15"
	M5  Timeframe = "M5"
)

// AnalysisTimeframes lists the timeframes the engine consumes each cycle,
// highest first. H4 and H1 drive bias, M15 and M5 refine entries.
var AnalysisTimeframes = []Timeframe{H4, H1, M15, M5}

// Duration returns the bar length of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case H4:
		return 4 * time.Hour
	case H1:
		return time.Hour
	case M15:
		return 15 * time.Minute
	case M5:
		return 5 * time.Minute
	default:
		return time.Hour
	}
}

// Candle is one OHLC bar. Sequences are ordered oldest first and are
// treated as immutable once handed to the engine.
type Candle struct {
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
	Time  time.Time `json:"time"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// CandleSet maps each timeframe to its rolling candle window for one cycle.
type CandleSet map[Timeframe][]Candle

// ValidateCandles checks OHLC consistency once at the boundary so the
// detectors never have to.
func ValidateCandles(candles []Candle) error {
	for i, c := range candles {
		if c.High < c.Low {
			return fmt.Errorf("candle %d: high %.5f below low %.5f", i, c.High, c.Low)
		}
		if c.High < c.Open || c.High < c.Close {
			return fmt.Errorf("candle %d: high %.5f below body", i, c.High)
		}
		if c.Low > c.Open || c.Low > c.Close {
			return fmt.Errorf("candle %d: low %.5f above body", i, c.Low)
		}
	}
	return nil
}
