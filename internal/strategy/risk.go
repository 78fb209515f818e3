package strategy

import "SignalFeed/internal/model"

// RewardRatio is the take-profit distance as a multiple of the stop distance.
const RewardRatio = 2.5

// StopMultiplier picks the ATR multiple for the stop from the RSI regime.
// A missing RSI is treated as neutral.
func StopMultiplier(rsi *float64) float64 {
	switch {
	case rsi == nil:
		return 2.2
	case *rsi > 60:
		return 2.0
	case *rsi < 40:
		return 2.5
	default:
		return 2.2
	}
}

// CalculateRiskLevels returns buy-side stop-loss and take-profit levels for an
// entry at price. All levels are nil when price or ATR is missing.
func CalculateRiskLevels(price, atr, rsi *float64) model.RiskLevels {
	if price == nil || atr == nil || *price <= 0 || *atr <= 0 {
		return model.RiskLevels{}
	}
	mult := StopMultiplier(rsi)
	stop := StopLevel(*price, *atr, rsi)
	target := *price + RewardRatio*(*price-stop)
	return model.RiskLevels{
		StopLoss:      model.Float(stop),
		TakeProfit:    model.Float(target),
		ATRMultiplier: model.Float(mult),
	}
}

// StopLevel is entry − ATR × StopMultiplier(rsi).
func StopLevel(entry, atr float64, rsi *float64) float64 {
	return entry - atr*StopMultiplier(rsi)
}
