package analysis

import (
	"testing"
	"time"

	"smc-trading-bot/internal/market"
)

// TestDetectBullishZone tests that a bearish precursor before three
// bullish candles becomes a demand zone.
func TestDetectBullishZone(t *testing.T) {
	detector := NewZoneDetector()

	candles := []market.Candle{
		// Precursor: bearish candle, becomes the zone
		{Open: 102, High: 103, Low: 99, Close: 100},
		// Three bullish candles
		{Open: 100, High: 104, Low: 100, Close: 103},
		{Open: 103, High: 107, Low: 102, Close: 106},
		{Open: 106, High: 110, Low: 105, Close: 109},
		// Trailing candle so the window is complete
		{Open: 109, High: 111, Low: 108, Close: 108.5},
	}

	zones := detector.Detect(candles, market.H1)

	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}

	zone := zones[0]

	if zone.Direction != Bullish {
		t.Errorf("expected Bullish, got %s", zone.Direction)
	}
	if zone.High != 103 || zone.Low != 99 {
		t.Errorf("expected bounds [99, 103], got [%f, %f]", zone.Low, zone.High)
	}
	if zone.EntryPrice != 101 {
		t.Errorf("expected entry at midpoint 101, got %f", zone.EntryPrice)
	}
	if !zone.Valid {
		t.Error("new zone should be valid")
	}
	// Strength is the move from the precursor close to the run's last close.
	if zone.Strength != 9 {
		t.Errorf("expected strength 9, got %f", zone.Strength)
	}
}

// TestDetectBearishZone tests the mirrored supply zone rule
func TestDetectBearishZone(t *testing.T) {
	detector := NewZoneDetector()

	candles := []market.Candle{
		{Open: 100, High: 103, Low: 99, Close: 102}, // Bullish precursor
		{Open: 102, High: 102, Low: 98, Close: 99},
		{Open: 99, High: 99.5, Low: 95, Close: 96},
		{Open: 96, High: 96.5, Low: 92, Close: 93},
		{Open: 93, High: 94, Low: 91, Close: 93.5},
	}

	zones := detector.Detect(candles, market.H4)

	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}

	zone := zones[0]

	if zone.Direction != Bearish {
		t.Errorf("expected Bearish, got %s", zone.Direction)
	}
	if zone.Strength != 9 {
		t.Errorf("expected strength 9, got %f", zone.Strength)
	}
}

// TestDetectZoneTooFewCandles tests that short sequences yield nothing
func TestDetectZoneTooFewCandles(t *testing.T) {
	detector := NewZoneDetector()

	candles := []market.Candle{
		{Open: 102, High: 103, Low: 99, Close: 100},
		{Open: 100, High: 104, Low: 100, Close: 103},
		{Open: 103, High: 107, Low: 102, Close: 106},
		{Open: 106, High: 110, Low: 105, Close: 109},
	}

	if zones := detector.Detect(candles, market.H1); len(zones) != 0 {
		t.Errorf("expected no zones for 4 candles, got %d", len(zones))
	}
}

// TestDetectReversals tests that breaking a zone invalidates it and emits
// exactly one opposite reversal zone with identical bounds.
func TestDetectReversals(t *testing.T) {
	detector := NewZoneDetector()

	breakTime := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	zone := &Zone{
		Direction:  Bullish,
		High:       103,
		Low:        99,
		EntryPrice: 101,
		Valid:      true,
	}

	candles := []market.Candle{
		{Open: 102, High: 104, Low: 100, Close: 101},
		// Closes below the zone low: break
		{Open: 101, High: 101.5, Low: 97, Close: 98, Time: breakTime},
		// Another close below must not emit a second reversal
		{Open: 98, High: 98.5, Low: 95, Close: 96},
	}

	reversals := detector.DetectReversals([]*Zone{zone}, candles)

	if len(reversals) != 1 {
		t.Fatalf("expected exactly 1 reversal, got %d", len(reversals))
	}
	if zone.Valid {
		t.Error("broken zone must be marked invalid")
	}

	rev := reversals[0]

	if rev.Direction != Bearish {
		t.Errorf("expected opposite direction Bearish, got %s", rev.Direction)
	}
	if rev.High != zone.High || rev.Low != zone.Low || rev.EntryPrice != zone.EntryPrice {
		t.Error("reversal must keep the original zone's bounds")
	}
	if rev.Original != zone {
		t.Error("reversal must reference the original zone")
	}
	if !rev.CreatedAt.Equal(breakTime) {
		t.Errorf("reversal time should be the breaking candle's, got %v", rev.CreatedAt)
	}
}

// TestDetectReversalsSkipsInvalid tests that already-broken zones are ignored
func TestDetectReversalsSkipsInvalid(t *testing.T) {
	detector := NewZoneDetector()

	zone := &Zone{Direction: Bullish, High: 103, Low: 99, Valid: false}
	candles := []market.Candle{
		{Open: 101, High: 101.5, Low: 97, Close: 98},
	}

	if reversals := detector.DetectReversals([]*Zone{zone}, candles); len(reversals) != 0 {
		t.Errorf("expected no reversals for invalid zone, got %d", len(reversals))
	}
}

// TestZoneIsValid tests the point-in-time validity check
func TestZoneIsValid(t *testing.T) {
	detector := NewZoneDetector()

	bullish := &Zone{Direction: Bullish, High: 103, Low: 99}
	bearish := &Zone{Direction: Bearish, High: 103, Low: 99}

	tests := []struct {
		name  string
		zone  *Zone
		price float64
		valid bool
	}{
		{"bullish above low", bullish, 100, true},
		{"bullish at low", bullish, 99, true},
		{"bullish below low", bullish, 98, false},
		{"bearish below high", bearish, 102, true},
		{"bearish at high", bearish, 103, true},
		{"bearish above high", bearish, 104, false},
	}

	for _, tt := range tests {
		if got := detector.IsValid(tt.zone, tt.price); got != tt.valid {
			t.Errorf("%s: IsValid = %v, want %v", tt.name, got, tt.valid)
		}
	}
}
