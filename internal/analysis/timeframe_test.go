package analysis

import (
	"testing"

	"github.com/rs/zerolog"

	"smc-trading-bot/internal/market"
)

func newTestAnalyzer() *MultiTimeframeAnalyzer {
	return NewMultiTimeframeAnalyzer(
		NewImbalanceDetector(0),
		NewStructureAnalyzer(5),
		NewZoneDetector(),
		NewLiquidityAnalyzer(0.001),
		0.8,
		zerolog.Nop(),
	)
}

// TestHTFBias walks the full H4xH1 trend combination table
func TestHTFBias(t *testing.T) {
	analyzer := newTestAnalyzer()

	tests := []struct {
		h4, h1 Trend
		want   Bias
	}{
		{Uptrend, Uptrend, BiasBullish},
		{Uptrend, Downtrend, BiasBullish}, // H4 dominates
		{Uptrend, Ranging, BiasBullish},
		{Downtrend, Downtrend, BiasBearish},
		{Downtrend, Uptrend, BiasBearish}, // H4 dominates
		{Downtrend, Ranging, BiasBearish},
		{Ranging, Uptrend, BiasBullish}, // Ranging H4 defers to H1
		{Ranging, Downtrend, BiasBearish},
		{Ranging, Ranging, BiasNeutral},
	}

	for _, tt := range tests {
		h4 := &MarketStructure{Trend: tt.h4}
		h1 := &MarketStructure{Trend: tt.h1}
		if got := analyzer.HTFBias(h4, h1); got != tt.want {
			t.Errorf("HTFBias(%s, %s) = %s, want %s", tt.h4, tt.h1, got, tt.want)
		}
	}
}

// TestHTFBiasMissingStructure tests that absent structures yield neutral
func TestHTFBiasMissingStructure(t *testing.T) {
	analyzer := newTestAnalyzer()

	h1 := &MarketStructure{Trend: Uptrend}

	if got := analyzer.HTFBias(nil, h1); got != BiasNeutral {
		t.Errorf("expected NEUTRAL with nil H4, got %s", got)
	}
	if got := analyzer.HTFBias(h1, nil); got != BiasNeutral {
		t.Errorf("expected NEUTRAL with nil H1, got %s", got)
	}
}

// TestAlignment tests direction and overlap requirements
func TestAlignment(t *testing.T) {
	analyzer := newTestAnalyzer()

	tests := []struct {
		name string
		a, b ImbalanceZone
		want bool
	}{
		{
			"same direction overlapping",
			ImbalanceZone{Direction: Bullish, High: 115, Low: 105},
			ImbalanceZone{Direction: Bullish, High: 112, Low: 108},
			true,
		},
		{
			"direction mismatch despite overlap",
			ImbalanceZone{Direction: Bullish, High: 115, Low: 105},
			ImbalanceZone{Direction: Bearish, High: 112, Low: 108},
			false,
		},
		{
			"same direction disjoint",
			ImbalanceZone{Direction: Bullish, High: 110, Low: 105},
			ImbalanceZone{Direction: Bullish, High: 120, Low: 115},
			false,
		},
		{
			"touching edges count as overlap",
			ImbalanceZone{Direction: Bearish, High: 110, Low: 105},
			ImbalanceZone{Direction: Bearish, High: 115, Low: 110},
			true,
		},
	}

	for _, tt := range tests {
		if got := analyzer.Alignment(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: Alignment = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// TestConfluenceZones tests intersection math and component tags
func TestConfluenceZones(t *testing.T) {
	analyzer := newTestAnalyzer()

	analysis := TimeframeAnalysis{
		Symbol: "US30",
		H4Imbalances: []ImbalanceZone{
			{Direction: Bullish, High: 115, Low: 105, Equilibrium: 110},
		},
		H1Imbalances: []ImbalanceZone{
			{Direction: Bullish, High: 112, Low: 108, Equilibrium: 110},
			{Direction: Bearish, High: 114, Low: 110, Equilibrium: 112}, // Direction mismatch
		},
	}

	zones := analyzer.ConfluenceZones(analysis)

	if len(zones) != 1 {
		t.Fatalf("expected 1 confluence zone, got %d", len(zones))
	}

	zone := zones[0]

	if zone.High != 112 || zone.Low != 108 {
		t.Errorf("expected intersection [108, 112], got [%f, %f]", zone.Low, zone.High)
	}
	if zone.EntryPrice != 110 {
		t.Errorf("expected entry at midpoint 110, got %f", zone.EntryPrice)
	}
	if zone.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %f", zone.Confidence)
	}
	if zone.Direction != Bullish {
		t.Errorf("expected Bullish, got %s", zone.Direction)
	}
	if len(zone.Components) != 2 || zone.Components[0] != "H4_FVG" || zone.Components[1] != "H1_FVG" {
		t.Errorf("unexpected components %v", zone.Components)
	}
}

// TestAnalyzeMissingTimeframes tests that absent candle slots stay empty
func TestAnalyzeMissingTimeframes(t *testing.T) {
	analyzer := newTestAnalyzer()

	analysis := analyzer.Analyze("XAUUSD", market.CandleSet{})

	if analysis.H4Structure != nil || analysis.H1Structure != nil {
		t.Error("missing candles should leave structures nil")
	}
	if analysis.H4Bias != Ranging || analysis.H1Bias != Ranging {
		t.Error("missing candles should default bias to ranging")
	}
	if len(analysis.H4Imbalances) != 0 || len(analysis.H1Liquidity) != 0 {
		t.Error("missing candles should produce no detector output")
	}
}

// TestAnalyzeRunsDetectorSuite tests that H1 candles populate zones and
// liquidity alongside imbalances and structure.
func TestAnalyzeRunsDetectorSuite(t *testing.T) {
	analyzer := newTestAnalyzer()

	candles := make([]market.Candle, 20)
	for i := range candles {
		candles[i] = market.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	}
	// Spike in the middle makes one liquidity level each side.
	candles[10].High = 110
	candles[10].Low = 90

	analysis := analyzer.Analyze("US30", market.CandleSet{market.H1: candles})

	if analysis.H1Structure == nil {
		t.Fatal("H1 structure should be populated")
	}
	if len(analysis.H1Liquidity) != 2 {
		t.Errorf("expected 2 liquidity levels, got %d", len(analysis.H1Liquidity))
	}
}

// TestClassifyZone tests premium/discount classification
func TestClassifyZone(t *testing.T) {
	analyzer := newTestAnalyzer()

	if got := analyzer.ClassifyZone(110, 105); got != Premium {
		t.Errorf("price above equilibrium should be PREMIUM, got %s", got)
	}
	if got := analyzer.ClassifyZone(100, 105); got != Discount {
		t.Errorf("price below equilibrium should be DISCOUNT, got %s", got)
	}
	if got := analyzer.ClassifyZone(105, 105); got != Discount {
		t.Errorf("price at equilibrium should be DISCOUNT, got %s", got)
	}
}

// TestBiasFromZone tests the contrarian zone read
func TestBiasFromZone(t *testing.T) {
	analyzer := newTestAnalyzer()

	if got := analyzer.BiasFromZone(Premium); got != "SELL" {
		t.Errorf("PREMIUM should map to SELL, got %s", got)
	}
	if got := analyzer.BiasFromZone(Discount); got != "BUY" {
		t.Errorf("DISCOUNT should map to BUY, got %s", got)
	}
}
