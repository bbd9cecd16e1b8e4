// Package analysis implements the Smart Money Concepts pattern detectors:
// imbalance zones, supply/demand zones, market structure, liquidity levels,
// and the multi-timeframe aggregator. All detectors are stateless; they
// recompute from the candle window they are given and keep nothing between
// cycles.
package analysis

import (
	"math"
	"sort"
	"time"

	"smc-trading-bot/internal/market"
)

// Direction classifies a zone or structure reading.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// ImbalanceZone is a three-candle price gap (fair value gap) the market
// tends to revisit. Equilibrium is always the midpoint of high and low.
type ImbalanceZone struct {
	Timeframe   market.Timeframe `json:"timeframe"`
	Direction   Direction        `json:"direction"`
	High        float64          `json:"high"`
	Low         float64          `json:"low"`
	Equilibrium float64          `json:"equilibrium"`
	Filled      bool             `json:"filled"`
	CreatedAt   time.Time        `json:"created_at"`
	CandleIndex int              `json:"candle_index"`
}

// ImbalanceDetector finds imbalance zones in candle windows.
type ImbalanceDetector struct {
	minGapSize float64
}

// NewImbalanceDetector creates a detector. A positive minGapSize drops
// gaps narrower than that many price units; zero keeps every gap.
func NewImbalanceDetector(minGapSize float64) *ImbalanceDetector {
	return &ImbalanceDetector{minGapSize: minGapSize}
}

// Detect scans a 3-candle window across the sequence. A window produces at
// most one zone: bullish when the first candle's low clears the third
// candle's high, bearish when the first candle's high sits under the third
// candle's low. Overlapping zones from adjacent windows are all retained.
func (d *ImbalanceDetector) Detect(candles []market.Candle, timeframe market.Timeframe) []ImbalanceZone {
	if len(candles) < 3 {
		return nil
	}

	var zones []ImbalanceZone
	for i := 0; i < len(candles)-2; i++ {
		first := candles[i]
		middle := candles[i+1]
		third := candles[i+2]

		if first.Low > third.High {
			gap := first.Low - third.High
			if gap < d.minGapSize {
				continue
			}
			zones = append(zones, ImbalanceZone{
				Timeframe:   timeframe,
				Direction:   Bullish,
				High:        first.Low,
				Low:         third.High,
				Equilibrium: (first.Low + third.High) / 2,
				CreatedAt:   middle.Time,
				CandleIndex: i,
			})
		} else if first.High < third.Low {
			gap := third.Low - first.High
			if gap < d.minGapSize {
				continue
			}
			zones = append(zones, ImbalanceZone{
				Timeframe:   timeframe,
				Direction:   Bearish,
				High:        third.Low,
				Low:         first.High,
				Equilibrium: (third.Low + first.High) / 2,
				CreatedAt:   middle.Time,
				CandleIndex: i,
			})
		}
	}

	return zones
}

// IsFilled reports whether price has traded through the zone: a bullish
// zone fills when price drops to its low, a bearish zone when price rises
// to its high.
func (d *ImbalanceDetector) IsFilled(zone ImbalanceZone, price float64) bool {
	if zone.Direction == Bullish {
		return price <= zone.Low
	}
	return price >= zone.High
}

// UpdateStatus marks zones filled in place. Mutation here is scoped to the
// current cycle's slice; zones are never carried across cycles.
func (d *ImbalanceDetector) UpdateStatus(zones []ImbalanceZone, price float64) {
	for i := range zones {
		if !zones[i].Filled {
			zones[i].Filled = d.IsFilled(zones[i], price)
		}
	}
}

// FilterUnfilled returns only the zones price has not traded through.
func (d *ImbalanceDetector) FilterUnfilled(zones []ImbalanceZone) []ImbalanceZone {
	var unfilled []ImbalanceZone
	for _, zone := range zones {
		if !zone.Filled {
			unfilled = append(unfilled, zone)
		}
	}
	return unfilled
}

// Nearest returns the unfilled zone whose equilibrium is closest to price,
// optionally restricted to one direction. Ties keep the earlier zone.
// The second return value is false when no zone qualifies.
func (d *ImbalanceDetector) Nearest(zones []ImbalanceZone, price float64, direction *Direction) (ImbalanceZone, bool) {
	var best ImbalanceZone
	bestDist := math.Inf(1)
	found := false

	for _, zone := range d.FilterUnfilled(zones) {
		if direction != nil && zone.Direction != *direction {
			continue
		}
		dist := math.Abs(zone.Equilibrium - price)
		if dist < bestDist {
			best = zone
			bestDist = dist
			found = true
		}
	}

	return best, found
}

// PrioritizeByDistance returns the unfilled zones sorted by equilibrium
// distance to price, nearest first. The sort is stable so equal distances
// keep encounter order.
func (d *ImbalanceDetector) PrioritizeByDistance(zones []ImbalanceZone, price float64) []ImbalanceZone {
	unfilled := d.FilterUnfilled(zones)
	sorted := make([]ImbalanceZone, len(unfilled))
	copy(sorted, unfilled)

	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Equilibrium-price) < math.Abs(sorted[j].Equilibrium-price)
	})

	return sorted
}
