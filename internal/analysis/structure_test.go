package analysis

import (
	"testing"
	"time"

	"smc-trading-bot/internal/market"
)

// uptrendCandles builds a zigzag whose swing highs (12, 13, 14) and swing
// lows (7, 8) both rise under a lookback of 2.
func uptrendCandles() []market.Candle {
	bars := []struct{ high, low, close float64 }{
		{10, 9, 9.5},
		{11, 10, 10.5},
		{12, 11, 11.5}, // Swing high 12
		{11, 8, 9},
		{10, 7, 8}, // Swing low 7
		{11, 8, 10},
		{13, 9, 12}, // Swing high 13
		{12, 8.5, 10},
		{11, 8, 9}, // Swing low 8
		{12, 9, 11},
		{14, 10, 13}, // Swing high 14
		{13, 9.5, 11},
		{12, 9, 11.5},
	}

	candles := make([]market.Candle, len(bars))
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i, b := range bars {
		candles[i] = market.Candle{
			Open:  b.close,
			High:  b.high,
			Low:   b.low,
			Close: b.close,
			Time:  base.Add(time.Duration(i) * time.Hour),
		}
	}
	return candles
}

// mirror flips a candle sequence around a pivot price so uptrend fixtures
// become downtrend fixtures.
func mirror(candles []market.Candle) []market.Candle {
	const pivot = 30.0
	out := make([]market.Candle, len(candles))
	for i, c := range candles {
		out[i] = market.Candle{
			Open:  pivot - c.Open,
			High:  pivot - c.Low,
			Low:   pivot - c.High,
			Close: pivot - c.Close,
			Time:  c.Time,
		}
	}
	return out
}

// TestIdentifyUptrend tests swing detection and trend classification
func TestIdentifyUptrend(t *testing.T) {
	analyzer := NewStructureAnalyzer(2)

	structure := analyzer.Identify(uptrendCandles())

	if structure.Trend != Uptrend {
		t.Errorf("expected UPTREND, got %s", structure.Trend)
	}
	if len(structure.SwingHighs) != 3 {
		t.Fatalf("expected 3 swing highs, got %d", len(structure.SwingHighs))
	}
	if len(structure.SwingLows) != 2 {
		t.Fatalf("expected 2 swing lows, got %d", len(structure.SwingLows))
	}

	wantHighs := []float64{12, 13, 14}
	for i, sp := range structure.SwingHighs {
		if sp.Price != wantHighs[i] {
			t.Errorf("swing high %d: got %f, want %f", i, sp.Price, wantHighs[i])
		}
	}
	wantLows := []float64{7, 8}
	for i, sp := range structure.SwingLows {
		if sp.Price != wantLows[i] {
			t.Errorf("swing low %d: got %f, want %f", i, sp.Price, wantLows[i])
		}
	}
}

// TestIdentifyDowntrend tests the mirrored classification
func TestIdentifyDowntrend(t *testing.T) {
	analyzer := NewStructureAnalyzer(2)

	structure := analyzer.Identify(mirror(uptrendCandles()))

	if structure.Trend != Downtrend {
		t.Errorf("expected DOWNTREND, got %s", structure.Trend)
	}
}

// TestIdentifyTooFewCandles tests the short-window ranging fallback
func TestIdentifyTooFewCandles(t *testing.T) {
	analyzer := NewStructureAnalyzer(5)

	candles := uptrendCandles()[:8] // Below 2x lookback

	structure := analyzer.Identify(candles)

	if structure.Trend != Ranging {
		t.Errorf("expected RANGING for short window, got %s", structure.Trend)
	}
	if len(structure.SwingHighs) != 0 || len(structure.SwingLows) != 0 {
		t.Error("short window should produce no swing points")
	}
}

// TestClassifyTrendMixedSwings tests that mixed swings classify as ranging
func TestClassifyTrendMixedSwings(t *testing.T) {
	analyzer := NewStructureAnalyzer(2)

	highs := []SwingPoint{{Price: 12}, {Price: 14}, {Price: 13}}
	lows := []SwingPoint{{Price: 7}, {Price: 8}}

	if trend := analyzer.classifyTrend(highs, lows); trend != Ranging {
		t.Errorf("expected RANGING for mixed highs, got %s", trend)
	}
}

// TestClassifyTrendUsesRecentSwings tests that only the last three swing
// points on each side decide the trend; older history is ignored.
func TestClassifyTrendUsesRecentSwings(t *testing.T) {
	analyzer := NewStructureAnalyzer(2)

	// Early swings fall, the last three rise on both sides.
	highs := []SwingPoint{{Price: 20}, {Price: 18}, {Price: 12}, {Price: 13}, {Price: 14}}
	lows := []SwingPoint{{Price: 15}, {Price: 6}, {Price: 7}, {Price: 8}}

	if trend := analyzer.classifyTrend(highs, lows); trend != Uptrend {
		t.Errorf("expected UPTREND from recent swings, got %s", trend)
	}
}

// TestDetectBreak tests structural break detection in an uptrend
func TestDetectBreak(t *testing.T) {
	analyzer := NewStructureAnalyzer(2)

	candles := uptrendCandles()

	// Last close 11.5 is below the prior swing high 13: no break.
	if at := analyzer.DetectBreak(candles); at != nil {
		t.Errorf("expected no break, got %v", at)
	}

	// Close above 13 (the highest swing high before the most recent one)
	// is a break of structure.
	broken := make([]market.Candle, len(candles))
	copy(broken, candles)
	last := broken[len(broken)-1]
	last.Close = 13.5
	last.High = 13.6
	broken[len(broken)-1] = last

	at := analyzer.DetectBreak(broken)
	if at == nil {
		t.Fatal("expected a structural break")
	}
	if !at.Equal(last.Time) {
		t.Errorf("break time should be the latest candle's, got %v", at)
	}
}

// TestDetectCharacterChange tests trend exhaustion detection
func TestDetectCharacterChange(t *testing.T) {
	analyzer := NewStructureAnalyzer(2)

	candles := uptrendCandles()

	if at := analyzer.DetectCharacterChange(candles); at != nil {
		t.Errorf("expected no character change, got %v", at)
	}

	// Close below the second-most-recent swing low (7) flips the character.
	changed := make([]market.Candle, len(candles))
	copy(changed, candles)
	last := changed[len(changed)-1]
	last.Close = 6.5
	last.Low = 6.4
	changed[len(changed)-1] = last

	at := analyzer.DetectCharacterChange(changed)
	if at == nil {
		t.Fatal("expected a character change")
	}
	if !at.Equal(last.Time) {
		t.Errorf("change time should be the latest candle's, got %v", at)
	}
}
