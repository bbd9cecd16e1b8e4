package market

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"
)

// simInstrument sets the price regime for a simulated symbol.
type simInstrument struct {
	basePrice  float64
	volatility float64 // Per-bar fractional move on H1
	drift      float64 // Per-bar fractional trend component
}

var simInstruments = map[string]simInstrument{
	"US30":   {basePrice: 39000, volatility: 0.0020, drift: 0.00008},
	"XAUUSD": {basePrice: 2350, volatility: 0.0030, drift: 0.00005},
	"NAS100": {basePrice: 18500, volatility: 0.0025, drift: 0.00010},
}

// SimFeed produces deterministic synthetic candles for development and
// backtest-style runs without a broker connection. The same symbol and
// bar time always yield the same candle.
type SimFeed struct {
	mu     sync.Mutex
	prices map[string]float64 // Last close per symbol
}

// NewSimFeed creates a simulated market data feed.
func NewSimFeed() *SimFeed {
	return &SimFeed{prices: make(map[string]float64)}
}

// Candles returns the most recent count bars for the symbol and timeframe,
// oldest first, aligned to the timeframe boundary before now.
func (f *SimFeed) Candles(ctx context.Context, symbol string, tf Timeframe, count int) ([]Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inst, ok := simInstruments[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}

	barLen := tf.Duration()
	end := time.Now().UTC().Truncate(barLen)
	start := end.Add(-time.Duration(count) * barLen)

	// Scale volatility with the square root of bar length relative to H1.
	scale := math.Sqrt(barLen.Hours())
	vol := inst.volatility * scale
	drift := inst.drift * barLen.Hours()

	candles := make([]Candle, 0, count)
	price := f.priceAt(symbol, inst, start)
	for i := 0; i < count; i++ {
		barTime := start.Add(time.Duration(i) * barLen)
		rng := barRand(symbol, tf, barTime)

		open := price
		move := rng.NormFloat64() * vol * open
		close := open + move + drift*open
		wickHigh := math.Abs(rng.NormFloat64()) * vol * open * 0.5
		wickLow := math.Abs(rng.NormFloat64()) * vol * open * 0.5

		c := Candle{
			Open:  open,
			Close: close,
			High:  math.Max(open, close) + wickHigh,
			Low:   math.Min(open, close) - wickLow,
			Time:  barTime,
		}
		candles = append(candles, c)
		price = close
	}

	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()

	return candles, nil
}

// CurrentPrice returns the latest simulated price for the symbol.
func (f *SimFeed) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	price, ok := f.prices[symbol]
	f.mu.Unlock()
	if ok {
		return price, nil
	}

	// No candles fetched yet, derive from the M5 walk.
	candles, err := f.Candles(ctx, symbol, M5, 1)
	if err != nil {
		return 0, err
	}
	return candles[len(candles)-1].Close, nil
}

// priceAt reconstructs the walk price at a given bar boundary so windows
// of different lengths stay consistent with each other.
func (f *SimFeed) priceAt(symbol string, inst simInstrument, at time.Time) float64 {
	// Walk H1 bars from a fixed epoch to the requested time.
	epoch := at.Add(-200 * time.Hour)
	price := inst.basePrice
	for t := epoch; t.Before(at); t = t.Add(time.Hour) {
		rng := barRand(symbol, H1, t)
		move := rng.NormFloat64() * inst.volatility * price
		price += move + inst.drift*price
	}
	return price
}

// barRand returns the deterministic random source for one bar.
func barRand(symbol string, tf Timeframe, barTime time.Time) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(tf))
	var buf [8]byte
	unix := barTime.Unix()
	for i := 0; i < 8; i++ {
		buf[i] = byte(unix >> (8 * i))
	}
	h.Write(buf[:])
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
