package signal

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smc-trading-bot/config"
	"smc-trading-bot/internal/analysis"
	"smc-trading-bot/internal/market"
)

// Generator turns a cycle's candle set into at most one validated signal.
type Generator struct {
	cfg       config.SMCConfig
	mtf       *analysis.MultiTimeframeAnalyzer
	validator *Validator
	log       zerolog.Logger
}

// NewGenerator creates a signal generator.
func NewGenerator(cfg config.SMCConfig, mtf *analysis.MultiTimeframeAnalyzer, log zerolog.Logger) *Generator {
	return &Generator{
		cfg:       cfg,
		mtf:       mtf,
		validator: NewValidator(cfg, log),
		log:       log.With().Str("component", "signal_generator").Logger(),
	}
}

// Generate runs the full synthesis pipeline: multi-timeframe analysis,
// bias resolution, confluence selection with an H1 imbalance fallback,
// level derivation, order-kind classification and validation. A nil return
// is the normal "no actionable setup" outcome, not an error.
func (g *Generator) Generate(symbol string, candles market.CandleSet, currentPrice float64) *Signal {
	tfAnalysis := g.mtf.Analyze(symbol, candles)
	return g.GenerateFromAnalysis(symbol, tfAnalysis, currentPrice)
}

// GenerateFromAnalysis runs synthesis on an already computed analysis,
// letting callers that cache the analysis avoid doing it twice.
func (g *Generator) GenerateFromAnalysis(symbol string, tfAnalysis analysis.TimeframeAnalysis, currentPrice float64) *Signal {
	bias := g.mtf.HTFBias(tfAnalysis.H4Structure, tfAnalysis.H1Structure)
	g.log.Debug().Str("symbol", symbol).Str("bias", string(bias)).Msg("HTF bias resolved")

	if bias == analysis.BiasNeutral {
		return nil
	}

	if zone, ok := g.nearestMatchingConfluence(tfAnalysis, bias, currentPrice); ok {
		sig := g.fromConfluence(symbol, tfAnalysis, bias, zone, currentPrice)
		if result := g.validator.Validate(sig); !result.Valid {
			g.log.Info().Str("symbol", symbol).Str("reason", result.Reason).Msg("confluence signal rejected")
			return nil
		}
		g.logSignal(sig)
		return sig
	}

	sig := g.fromImbalanceFallback(symbol, tfAnalysis, bias, currentPrice)
	if sig == nil {
		return nil
	}
	if result := g.validator.Validate(sig); !result.Valid {
		g.log.Info().Str("symbol", symbol).Str("reason", result.Reason).Msg("fallback signal rejected")
		return nil
	}
	g.logSignal(sig)
	return sig
}

// nearestMatchingConfluence picks the bias-aligned confluence zone whose
// entry is closest to price. A mismatched nearest zone does not abort the
// cycle; the caller falls through to the imbalance fallback.
func (g *Generator) nearestMatchingConfluence(tfAnalysis analysis.TimeframeAnalysis, bias analysis.Bias, price float64) (analysis.ConfluenceZone, bool) {
	zones := g.mtf.ConfluenceZones(tfAnalysis)

	var best analysis.ConfluenceZone
	bestDist := math.Inf(1)
	found := false

	for _, zone := range zones {
		if !directionMatchesBias(zone.Direction, bias) {
			continue
		}
		dist := math.Abs(zone.EntryPrice - price)
		if dist < bestDist {
			best = zone
			bestDist = dist
			found = true
		}
	}

	return best, found
}

func directionMatchesBias(dir analysis.Direction, bias analysis.Bias) bool {
	return (bias == analysis.BiasBullish && dir == analysis.Bullish) ||
		(bias == analysis.BiasBearish && dir == analysis.Bearish)
}

// fromConfluence derives levels from the zone geometry: stop a tenth of
// the range beyond the far edge, target two ranges beyond the near edge.
func (g *Generator) fromConfluence(symbol string, tfAnalysis analysis.TimeframeAnalysis, bias analysis.Bias, zone analysis.ConfluenceZone, currentPrice float64) *Signal {
	zoneRange := zone.High - zone.Low
	entry := zone.EntryPrice

	var side Side
	var stop, target float64
	if bias == analysis.BiasBullish {
		side = Buy
		stop = zone.Low - zoneRange*0.1
		target = zone.High + zoneRange*2
	} else {
		side = Sell
		stop = zone.High + zoneRange*0.1
		target = zone.Low - zoneRange*2
	}

	return &Signal{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		Direction:     side,
		OrderKind:     ClassifyOrderKind(side, currentPrice, entry),
		EntryPrice:    entry,
		StopLoss:      stop,
		TakeProfit:    target,
		Confidence:    zone.Confidence,
		SetupType:     SetupConfluence,
		TimeframeBias: biasSnapshot(tfAnalysis),
		Zones:         []analysis.ConfluenceZone{zone},
		CreatedAt:     time.Now().UTC(),
	}
}

// fromImbalanceFallback selects the bias-aligned H1 imbalance zone nearest
// by equilibrium, enters at equilibrium with a buffered stop at the zone
// edge and a target sized to the configured fallback reward:risk.
func (g *Generator) fromImbalanceFallback(symbol string, tfAnalysis analysis.TimeframeAnalysis, bias analysis.Bias, currentPrice float64) *Signal {
	var best *analysis.ImbalanceZone
	bestDist := math.Inf(1)

	for i := range tfAnalysis.H1Imbalances {
		zone := &tfAnalysis.H1Imbalances[i]
		if zone.Filled || !directionMatchesBias(zone.Direction, bias) {
			continue
		}
		dist := math.Abs(zone.Equilibrium - currentPrice)
		if dist < bestDist {
			best = zone
			bestDist = dist
		}
	}

	if best == nil {
		return nil
	}

	entry := best.Equilibrium

	var side Side
	var stop float64
	if bias == analysis.BiasBullish {
		side = Buy
		stop = best.Low * (1 - g.cfg.StopBufferPercent)
	} else {
		side = Sell
		stop = best.High * (1 + g.cfg.StopBufferPercent)
	}
	target := CalculateTarget(side, entry, stop, g.cfg.FallbackRiskReward)

	return &Signal{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		Direction:     side,
		OrderKind:     ClassifyOrderKind(side, currentPrice, entry),
		EntryPrice:    entry,
		StopLoss:      stop,
		TakeProfit:    target,
		Confidence:    g.cfg.FallbackConfidence,
		SetupType:     SetupImbalance,
		TimeframeBias: biasSnapshot(tfAnalysis),
		CreatedAt:     time.Now().UTC(),
	}
}

func biasSnapshot(tfAnalysis analysis.TimeframeAnalysis) map[market.Timeframe]analysis.Trend {
	return map[market.Timeframe]analysis.Trend{
		market.H4: tfAnalysis.H4Bias,
		market.H1: tfAnalysis.H1Bias,
	}
}

// ClassifyOrderKind picks the resting-order type: a buy above the entry
// waits for a pullback (limit), below it waits for a breakout (stop);
// mirrored for sells.
func ClassifyOrderKind(side Side, currentPrice, entryPrice float64) OrderKind {
	if side == Buy {
		if currentPrice > entryPrice {
			return BuyLimit
		}
		return BuyStop
	}
	if currentPrice < entryPrice {
		return SellLimit
	}
	return SellStop
}

// CalculateTarget places the take profit so that reward equals risk times
// the requested ratio.
func CalculateTarget(side Side, entry, stop, ratio float64) float64 {
	risk := math.Abs(entry - stop)
	if side == Buy {
		return entry + risk*ratio
	}
	return entry - risk*ratio
}

func (g *Generator) logSignal(sig *Signal) {
	g.log.Info().
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Str("order_kind", string(sig.OrderKind)).
		Str("setup", string(sig.SetupType)).
		Float64("entry", sig.EntryPrice).
		Float64("stop", sig.StopLoss).
		Float64("target", sig.TakeProfit).
		Float64("confidence", sig.Confidence).
		Msg("signal generated")
}
