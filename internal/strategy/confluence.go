package strategy

import (
	"fmt"

	"SignalFeed/internal/model"
)

// Config holds the scorer thresholds.
type Config struct {
	RSIOversold     float64
	RSIOverbought   float64
	VolumeThreshold float64
	MinConfluence   int
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		RSIOversold:     30,
		RSIOverbought:   70,
		VolumeThreshold: 1.5,
		MinConfluence:   2,
	}
}

// strongThreshold is the |net| at which a classification becomes STRONG.
const strongThreshold = 4

// tally accumulates weighted bull and bear points with their explanations.
type tally struct {
	bull, bear int
	points     []string
}

func (t *tally) addBull(weight int, format string, args ...any) {
	t.bull += weight
	t.points = append(t.points, fmt.Sprintf("+%d bull: ", weight)+fmt.Sprintf(format, args...))
}

func (t *tally) addBear(weight int, format string, args ...any) {
	t.bear += weight
	t.points = append(t.points, fmt.Sprintf("+%d bear: ", weight)+fmt.Sprintf(format, args...))
}

// ScoreConfluence classifies an asset from its indicators. It is pure and total:
// partial data never panics and an asset without MACD or Bollinger data is
// always HOLD with zero net.
func ScoreConfluence(asset model.AssetSnapshot, cfg Config) model.ConfluenceResult {
	ind := asset.Indicators
	if ind.MACD == nil || ind.Bollinger == nil {
		return model.ConfluenceResult{
			Recommendation: model.Hold,
			Confidence:     model.ConfidenceLow,
			Points:         []string{},
		}
	}

	t := &tally{points: make([]string, 0, 8)}

	if ind.RSI != nil {
		rsi := *ind.RSI
		switch {
		case rsi < cfg.RSIOversold:
			t.addBull(2, "RSI oversold (%.1f)", rsi)
		case rsi < 40:
			t.addBull(1, "RSI weak (%.1f)", rsi)
		}
		switch {
		case rsi > cfg.RSIOverbought:
			t.addBear(2, "RSI overbought (%.1f)", rsi)
		case rsi > 60:
			t.addBear(1, "RSI elevated (%.1f)", rsi)
		}
	}

	if ind.MACD.Line > ind.MACD.Signal {
		t.addBull(2, "MACD above signal")
	} else {
		t.addBear(2, "MACD below signal")
	}
	switch {
	case ind.MACD.Histogram > 0:
		t.addBull(1, "MACD histogram positive")
	case ind.MACD.Histogram < 0:
		t.addBear(1, "MACD histogram negative")
	}

	price, hasPrice := asset.LastPrice()
	if hasPrice {
		switch {
		case price <= ind.Bollinger.Lower:
			t.addBull(2, "price at lower Bollinger band")
		case price >= ind.Bollinger.Upper:
			t.addBear(2, "price at upper Bollinger band")
		}

		if ind.SMA50 != nil && ind.SMA200 != nil {
			sma50, sma200 := *ind.SMA50, *ind.SMA200
			switch {
			case price > sma50 && sma50 > sma200:
				t.addBull(1, "price > SMA50 > SMA200")
			case price < sma50 && sma50 < sma200:
				t.addBear(1, "price < SMA50 < SMA200")
			}
		}
	}

	if ind.VolumeRatio != nil && *ind.VolumeRatio > cfg.VolumeThreshold {
		switch {
		case asset.ChangePercent > 0:
			t.addBull(1, "volume spike %.1fx on up move", *ind.VolumeRatio)
		case asset.ChangePercent < 0:
			t.addBear(1, "volume spike %.1fx on down move", *ind.VolumeRatio)
		}
	}

	net := t.bull - t.bear
	return model.ConfluenceResult{
		Recommendation: classify(net, cfg.MinConfluence),
		Net:            net,
		BullPoints:     t.bull,
		BearPoints:     t.bear,
		Confidence:     grade(net, cfg.MinConfluence),
		Points:         t.points,
	}
}

// classify maps a net score onto a recommendation.
func classify(net, minConfluence int) model.Recommendation {
	switch {
	case net >= strongThreshold:
		return model.StrongBuy
	case net >= minConfluence:
		return model.Buy
	case net <= -strongThreshold:
		return model.StrongSell
	case net <= -minConfluence:
		return model.Sell
	default:
		return model.Hold
	}
}

func grade(net, minConfluence int) model.Confidence {
	abs := net
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= strongThreshold:
		return model.ConfidenceHigh
	case abs >= minConfluence:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// ScoreAll scores every asset and returns copies with Confluence attached.
// The input slice is left untouched.
func ScoreAll(assets []model.AssetSnapshot, cfg Config) []model.AssetSnapshot {
	out := make([]model.AssetSnapshot, len(assets))
	for i, a := range assets {
		res := ScoreConfluence(a, cfg)
		a.Confluence = &res
		out[i] = a
	}
	return out
}
