package analysis

import (
	"github.com/rs/zerolog"

	"smc-trading-bot/internal/market"
)

// Bias is the higher-timeframe directional lean.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// PriceZone classifies price relative to an equilibrium level.
type PriceZone string

const (
	Premium  PriceZone = "PREMIUM"
	Discount PriceZone = "DISCOUNT"
)

// ConfluenceZone is the intersection of same-direction zones from two
// timeframes. It lives for one synthesis cycle only.
type ConfluenceZone struct {
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	EntryPrice float64   `json:"entry_price"`
	Components []string  `json:"components"`
	Confidence float64   `json:"confidence"`
	Direction  Direction `json:"direction"`
}

// TimeframeAnalysis carries one cycle's detector output per timeframe.
// Missing timeframes leave their slots empty.
type TimeframeAnalysis struct {
	Symbol        string           `json:"symbol"`
	H4Imbalances  []ImbalanceZone  `json:"h4_imbalances"`
	H1Imbalances  []ImbalanceZone  `json:"h1_imbalances"`
	M15Imbalances []ImbalanceZone  `json:"m15_imbalances"`
	M5Imbalances  []ImbalanceZone  `json:"m5_imbalances"`
	H4Structure   *MarketStructure `json:"h4_structure,omitempty"`
	H1Structure   *MarketStructure `json:"h1_structure,omitempty"`
	H4Bias        Trend            `json:"h4_bias"`
	H1Bias        Trend            `json:"h1_bias"`
	H4Zones       []*Zone          `json:"h4_zones"`
	H1Zones       []*Zone          `json:"h1_zones"`
	H1Reversals   []ReversalZone   `json:"h1_reversals"`
	H1Liquidity   []LiquidityLevel `json:"h1_liquidity"`
}

// MultiTimeframeAnalyzer runs the detectors across H4, H1, M15 and M5 and
// combines their output into a single bias and confluence view.
type MultiTimeframeAnalyzer struct {
	imbalances           *ImbalanceDetector
	structure            *StructureAnalyzer
	zones                *ZoneDetector
	liquidity            *LiquidityAnalyzer
	confluenceConfidence float64
	log                  zerolog.Logger
}

// NewMultiTimeframeAnalyzer wires the per-timeframe detectors together.
func NewMultiTimeframeAnalyzer(imbalances *ImbalanceDetector, structure *StructureAnalyzer, zones *ZoneDetector, liquidity *LiquidityAnalyzer, confluenceConfidence float64, log zerolog.Logger) *MultiTimeframeAnalyzer {
	return &MultiTimeframeAnalyzer{
		imbalances:           imbalances,
		structure:            structure,
		zones:                zones,
		liquidity:            liquidity,
		confluenceConfidence: confluenceConfidence,
		log:                  log.With().Str("component", "mtf_analyzer").Logger(),
	}
}

// Analyze runs the full detector suite on H4/H1 and imbalance detection
// alone on M15/M5. A missing timeframe yields an empty slot, not an error.
func (m *MultiTimeframeAnalyzer) Analyze(symbol string, candles market.CandleSet) TimeframeAnalysis {
	analysis := TimeframeAnalysis{
		Symbol: symbol,
		H4Bias: Ranging,
		H1Bias: Ranging,
	}

	if h4 := candles[market.H4]; len(h4) > 0 {
		analysis.H4Imbalances = m.imbalances.Detect(h4, market.H4)
		structure := m.structure.Identify(h4)
		analysis.H4Structure = &structure
		analysis.H4Bias = structure.Trend
		analysis.H4Zones = m.zones.Detect(h4, market.H4)
	}

	if h1 := candles[market.H1]; len(h1) > 0 {
		analysis.H1Imbalances = m.imbalances.Detect(h1, market.H1)
		structure := m.structure.Identify(h1)
		analysis.H1Structure = &structure
		analysis.H1Bias = structure.Trend

		analysis.H1Zones = m.zones.Detect(h1, market.H1)
		analysis.H1Reversals = m.zones.DetectReversals(analysis.H1Zones, h1)

		analysis.H1Liquidity = m.liquidity.IdentifyLevels(h1)
		m.liquidity.MarkSwept(analysis.H1Liquidity, h1)
	}

	if m15 := candles[market.M15]; len(m15) > 0 {
		analysis.M15Imbalances = m.imbalances.Detect(m15, market.M15)
	}

	if m5 := candles[market.M5]; len(m5) > 0 {
		analysis.M5Imbalances = m.imbalances.Detect(m5, market.M5)
	}

	m.log.Debug().
		Str("symbol", symbol).
		Int("h4_imbalances", len(analysis.H4Imbalances)).
		Int("h1_imbalances", len(analysis.H1Imbalances)).
		Int("h1_zones", len(analysis.H1Zones)).
		Int("h1_liquidity", len(analysis.H1Liquidity)).
		Str("h4_trend", string(analysis.H4Bias)).
		Str("h1_trend", string(analysis.H1Bias)).
		Msg("multi-timeframe analysis complete")

	return analysis
}

// HTFBias resolves the higher-timeframe bias from the H4 and H1 structures.
// Precedence: agreement wins; otherwise H4 dominates whenever it is not
// ranging; a ranging H4 defers to H1; everything else is neutral.
func (m *MultiTimeframeAnalyzer) HTFBias(h4, h1 *MarketStructure) Bias {
	if h4 == nil || h1 == nil {
		return BiasNeutral
	}

	switch {
	case h4.Trend == Uptrend && h1.Trend == Uptrend:
		return BiasBullish
	case h4.Trend == Downtrend && h1.Trend == Downtrend:
		return BiasBearish
	case h4.Trend == Uptrend:
		return BiasBullish
	case h4.Trend == Downtrend:
		return BiasBearish
	case h4.Trend == Ranging && h1.Trend == Uptrend:
		return BiasBullish
	case h4.Trend == Ranging && h1.Trend == Downtrend:
		return BiasBearish
	}

	return BiasNeutral
}

// Alignment reports whether two imbalance zones share a direction and
// overlap in price.
func (m *MultiTimeframeAnalyzer) Alignment(a, b ImbalanceZone) bool {
	if a.Direction != b.Direction {
		return false
	}
	return !(a.High < b.Low || b.High < a.Low)
}

// ConfluenceZones emits one zone per aligned H4xH1 imbalance pair: the
// intersection of the two ranges with entry at its midpoint.
func (m *MultiTimeframeAnalyzer) ConfluenceZones(analysis TimeframeAnalysis) []ConfluenceZone {
	var zones []ConfluenceZone

	for _, h4 := range analysis.H4Imbalances {
		for _, h1 := range analysis.H1Imbalances {
			if !m.Alignment(h4, h1) {
				continue
			}
			high := min(h4.High, h1.High)
			low := max(h4.Low, h1.Low)
			zones = append(zones, ConfluenceZone{
				High:       high,
				Low:        low,
				EntryPrice: (high + low) / 2,
				Components: []string{"H4_FVG", "H1_FVG"},
				Confidence: m.confluenceConfidence,
				Direction:  h4.Direction,
			})
		}
	}

	if len(zones) > 0 {
		m.log.Debug().Str("symbol", analysis.Symbol).Int("zones", len(zones)).Msg("confluence zones found")
	}

	return zones
}

// ClassifyZone labels price as premium when above equilibrium, discount
// otherwise.
func (m *MultiTimeframeAnalyzer) ClassifyZone(price, equilibrium float64) PriceZone {
	if price > equilibrium {
		return Premium
	}
	return Discount
}

// BiasFromZone is the contrarian secondary read: sell premium, buy
// discount. It never overrides the structural HTF bias.
func (m *MultiTimeframeAnalyzer) BiasFromZone(zone PriceZone) string {
	if zone == Premium {
		return "SELL"
	}
	return "BUY"
}
