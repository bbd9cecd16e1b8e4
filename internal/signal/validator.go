package signal

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"smc-trading-bot/config"
)

// ValidationResult reports whether a signal passed and, when it did not,
// why. Rejections are normal outcomes, never errors.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// Validator applies the minimum reward:risk and confidence thresholds.
type Validator struct {
	minRiskReward float64
	minConfidence float64
	log           zerolog.Logger
}

// NewValidator creates a validator from config thresholds.
func NewValidator(cfg config.SMCConfig, log zerolog.Logger) *Validator {
	return &Validator{
		minRiskReward: cfg.MinRiskReward,
		minConfidence: cfg.MinConfidence,
		log:           log.With().Str("component", "signal_validator").Logger(),
	}
}

// Validate checks price levels, risk, reward:risk ratio and confidence.
func (v *Validator) Validate(sig *Signal) ValidationResult {
	if sig == nil {
		return ValidationResult{Reason: "no signal"}
	}

	if sig.EntryPrice <= 0 || sig.StopLoss <= 0 || sig.TakeProfit <= 0 {
		return ValidationResult{Reason: fmt.Sprintf(
			"missing price levels (entry=%.5f stop=%.5f target=%.5f)",
			sig.EntryPrice, sig.StopLoss, sig.TakeProfit)}
	}

	risk := math.Abs(sig.EntryPrice - sig.StopLoss)
	if risk <= 0 {
		return ValidationResult{Reason: "zero risk"}
	}

	reward := math.Abs(sig.TakeProfit - sig.EntryPrice)
	ratio := reward / risk
	if ratio < v.minRiskReward {
		return ValidationResult{Reason: fmt.Sprintf("reward:risk %.2f below minimum %.2f", ratio, v.minRiskReward)}
	}

	if sig.Confidence < v.minConfidence {
		return ValidationResult{Reason: fmt.Sprintf("confidence %.2f below minimum %.2f", sig.Confidence, v.minConfidence)}
	}

	v.log.Debug().
		Str("symbol", sig.Symbol).
		Float64("reward_risk", ratio).
		Float64("confidence", sig.Confidence).
		Msg("signal validated")

	return ValidationResult{Valid: true}
}
