package analysis

import (
	"time"

	"smc-trading-bot/internal/market"
)

// Zone is a supply or demand zone: the last counter-direction candle
// before a strong directional run. Entry sits at the zone midpoint.
type Zone struct {
	Timeframe  market.Timeframe `json:"timeframe"`
	Direction  Direction        `json:"direction"`
	High       float64          `json:"high"`
	Low        float64          `json:"low"`
	EntryPrice float64          `json:"entry_price"`
	CreatedAt  time.Time        `json:"created_at"`
	Valid      bool             `json:"valid"`
	Strength   float64          `json:"strength"` // Magnitude of the subsequent move
}

// ReversalZone is a broken supply/demand zone reinterpreted with the
// opposite bias. It keeps the original zone's bounds and a read-only
// reference to it.
type ReversalZone struct {
	Original   *Zone     `json:"original"`
	Direction  Direction `json:"direction"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	EntryPrice float64   `json:"entry_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// ZoneDetector finds supply/demand zones and their reversals.
type ZoneDetector struct{}

// NewZoneDetector creates a supply/demand zone detector.
func NewZoneDetector() *ZoneDetector {
	return &ZoneDetector{}
}

// Detect looks for three consecutive same-color candles preceded by an
// opposite-colored candle; that precursor candle is the zone. Overlapping
// zones from adjacent windows are all retained. Fewer than five candles
// yields nothing.
func (d *ZoneDetector) Detect(candles []market.Candle, tf market.Timeframe) []*Zone {
	if len(candles) < 5 {
		return nil
	}

	var zones []*Zone
	for i := 0; i < len(candles)-4; i++ {
		bullishRun := candles[i+1].IsBullish() && candles[i+2].IsBullish() && candles[i+3].IsBullish()
		if bullishRun && candles[i].IsBearish() {
			zones = append(zones, &Zone{
				Timeframe:  tf,
				Direction:  Bullish,
				High:       candles[i].High,
				Low:        candles[i].Low,
				EntryPrice: (candles[i].High + candles[i].Low) / 2,
				CreatedAt:  candles[i].Time,
				Valid:      true,
				Strength:   candles[i+3].Close - candles[i].Close,
			})
		}

		bearishRun := candles[i+1].IsBearish() && candles[i+2].IsBearish() && candles[i+3].IsBearish()
		if bearishRun && candles[i].IsBullish() {
			zones = append(zones, &Zone{
				Timeframe:  tf,
				Direction:  Bearish,
				High:       candles[i].High,
				Low:        candles[i].Low,
				EntryPrice: (candles[i].High + candles[i].Low) / 2,
				CreatedAt:  candles[i].Time,
				Valid:      true,
				Strength:   candles[i].Close - candles[i+3].Close,
			})
		}
	}

	return zones
}

// DetectReversals scans candles chronologically for each still-valid zone.
// The first candle closing beyond the zone's far edge invalidates it and
// emits exactly one reversal zone with the opposite direction and the same
// bounds. Scanning stops at the earliest break.
func (d *ZoneDetector) DetectReversals(zones []*Zone, candles []market.Candle) []ReversalZone {
	var reversals []ReversalZone

	for _, zone := range zones {
		if !zone.Valid {
			continue
		}

		for _, candle := range candles {
			broken := (zone.Direction == Bullish && candle.Close < zone.Low) ||
				(zone.Direction == Bearish && candle.Close > zone.High)
			if !broken {
				continue
			}

			zone.Valid = false
			reversals = append(reversals, ReversalZone{
				Original:   zone,
				Direction:  zone.Direction.Opposite(),
				High:       zone.High,
				Low:        zone.Low,
				EntryPrice: zone.EntryPrice,
				CreatedAt:  candle.Time,
			})
			break
		}
	}

	return reversals
}

// IsValid is a point-in-time check against the current price. It does not
// mutate the zone; the chronological invalidation scan above is separate.
func (d *ZoneDetector) IsValid(zone *Zone, price float64) bool {
	if zone.Direction == Bullish {
		return price >= zone.Low
	}
	return price <= zone.High
}
