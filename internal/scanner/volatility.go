package scanner

import (
	"sort"
	"time"

	"smc-trading-bot/config"
	"smc-trading-bot/internal/market"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

// RSIState classifies the RSI reading against the configured bands.
type RSIState string

const (
	RSIOversold   RSIState = "OVERSOLD"
	RSIOverbought RSIState = "OVERBOUGHT"
	RSINeutral    RSIState = "NEUTRAL"
)

// InstrumentVolatility is the scan result for one symbol.
type InstrumentVolatility struct {
	Symbol          string    `json:"symbol"`
	VolatilityScore float64   `json:"volatility_score"` // ATR normalized by price
	CurrentPrice    float64   `json:"current_price"`
	ATR             float64   `json:"atr"`
	RSI             float64   `json:"rsi"`
	RSIState        RSIState  `json:"rsi_state"`
	TrendStrength   float64   `json:"trend_strength"` // Directional index, 0-100
	LastUpdate      time.Time `json:"last_update"`
}

// Scanner ranks instruments by volatility so the bot can prioritize the
// most active symbols. Scores are ATR normalized by price, which makes
// them comparable across instruments with very different price scales.
type Scanner struct {
	cfg config.ScannerConfig
	log zerolog.Logger
}

// New creates a volatility scanner.
func New(cfg config.ScannerConfig, logger zerolog.Logger) *Scanner {
	return &Scanner{
		cfg: cfg,
		log: logger.With().Str("component", "scanner").Logger(),
	}
}

// Score analyzes one symbol from its M5 candles. It returns false when
// there is not enough history or the symbol is below the volatility
// threshold.
func (s *Scanner) Score(symbol string, candles []market.Candle) (InstrumentVolatility, bool) {
	if len(candles) < s.cfg.ATRPeriod+1 {
		return InstrumentVolatility{}, false
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	price := closes[len(closes)-1]
	if price <= 0 {
		return InstrumentVolatility{}, false
	}

	atrSeries := talib.Atr(highs, lows, closes, s.cfg.ATRPeriod)
	atr := atrSeries[len(atrSeries)-1]
	score := atr / price

	if score < s.cfg.MinVolatility {
		s.log.Debug().
			Str("symbol", symbol).
			Float64("score", score).
			Msg("symbol below volatility threshold")
		return InstrumentVolatility{}, false
	}

	result := InstrumentVolatility{
		Symbol:          symbol,
		VolatilityScore: score,
		CurrentPrice:    price,
		ATR:             atr,
		RSIState:        RSINeutral,
		LastUpdate:      time.Now(),
	}

	if len(candles) > s.cfg.RSIPeriod {
		rsiSeries := talib.Rsi(closes, s.cfg.RSIPeriod)
		result.RSI = rsiSeries[len(rsiSeries)-1]
		result.RSIState = s.classifyRSI(result.RSI)
	}
	if len(candles) > s.cfg.RSIPeriod+1 {
		// Raw directional index rather than the smoothed ADX. A single
		// period reading is responsive enough for ranking purposes.
		dxSeries := talib.Dx(highs, lows, closes, s.cfg.RSIPeriod)
		result.TrendStrength = dxSeries[len(dxSeries)-1]
	}

	return result, true
}

// Scan scores every symbol and returns the survivors ranked by
// volatility, highest first.
func (s *Scanner) Scan(candlesBySymbol map[string][]market.Candle) []InstrumentVolatility {
	var results []InstrumentVolatility
	for symbol, candles := range candlesBySymbol {
		if iv, ok := s.Score(symbol, candles); ok {
			results = append(results, iv)
		}
	}
	return s.Rank(results)
}

// Rank sorts instruments by volatility score in descending order.
func (s *Scanner) Rank(instruments []InstrumentVolatility) []InstrumentVolatility {
	sort.SliceStable(instruments, func(i, j int) bool {
		return instruments[i].VolatilityScore > instruments[j].VolatilityScore
	})
	return instruments
}

func (s *Scanner) classifyRSI(rsi float64) RSIState {
	switch {
	case rsi <= s.cfg.RSIOversold:
		return RSIOversold
	case rsi >= s.cfg.RSIOverbought:
		return RSIOverbought
	default:
		return RSINeutral
	}
}
