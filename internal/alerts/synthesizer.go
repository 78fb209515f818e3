package alerts

import (
	"fmt"
	"sort"

	"SignalFeed/internal/model"
	"SignalFeed/internal/strategy"

	"github.com/google/uuid"
)

// Synthesize builds the alert list for one evaluation pass: proactive
// buy/sell alerts from scored assets plus reactive stop-loss alerts for open
// positions. Stop-loss alerts sort first. The inputs are read only.
func Synthesize(assets []model.AssetSnapshot, positions []model.Position, current map[string]model.AssetSnapshot, cfg strategy.Config) []model.Alert {
	out := ProactiveAlerts(assets, cfg)
	out = append(out, ReactiveAlerts(positions, current)...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// ProactiveAlerts emits an alert for every asset classified as a buy or sell.
// Assets without an attached confluence result are scored here.
func ProactiveAlerts(assets []model.AssetSnapshot, cfg strategy.Config) []model.Alert {
	var out []model.Alert
	for _, a := range assets {
		res := a.Confluence
		if res == nil {
			scored := strategy.ScoreConfluence(a, cfg)
			res = &scored
		}

		var typ model.AlertType
		switch {
		case res.Recommendation.IsBuy():
			typ = model.AlertBuy
		case res.Recommendation.IsSell():
			typ = model.AlertSell
		default:
			continue
		}

		price, ok := a.LastPrice()
		var pricePtr *float64
		if ok {
			pricePtr = model.Float(price)
		}
		risk := strategy.CalculateRiskLevels(pricePtr, a.Indicators.ATR, a.Indicators.RSI)

		out = append(out, model.Alert{
			ID:         uuid.NewString(),
			Type:       typ,
			Symbol:     a.Symbol,
			Priority:   model.PriorityOpportunity,
			Confidence: res.Confidence,
			Net:        res.Net,
			Risk:       risk,
			Price:      price,
			Message:    fmt.Sprintf("%s %s (net %+d)", a.Symbol, res.Recommendation, res.Net),
		})
	}
	return out
}

// ReactiveAlerts checks each open position against an ATR stop measured from
// its entry price. Closed positions and positions without a usable price or
// ATR are skipped.
func ReactiveAlerts(positions []model.Position, current map[string]model.AssetSnapshot) []model.Alert {
	var out []model.Alert
	for _, p := range positions {
		if !p.IsOpen() || p.BuyPrice <= 0 {
			continue
		}
		snap, ok := current[p.Symbol]
		if !ok || snap.Indicators.ATR == nil || *snap.Indicators.ATR <= 0 {
			continue
		}
		price, ok := snap.LastPrice()
		if !ok {
			continue
		}

		rsi := snap.Indicators.RSI
		stop := strategy.StopLevel(p.BuyPrice, *snap.Indicators.ATR, rsi)
		if price > stop {
			continue
		}

		entry := p.BuyPrice
		drawdown := (price - entry) / entry * 100
		out = append(out, model.Alert{
			ID:              uuid.NewString(),
			Type:            model.AlertStopLoss,
			Symbol:          p.Symbol,
			Priority:        model.PriorityStopLoss,
			Confidence:      model.ConfidenceHigh,
			Risk:            strategy.CalculateRiskLevels(&entry, snap.Indicators.ATR, rsi),
			Price:           price,
			EntryPrice:      entry,
			DrawdownPercent: drawdown,
			Message:         fmt.Sprintf("%s hit stop %.2f (entry %.2f, %.1f%%)", p.Symbol, stop, entry, drawdown),
		})
	}
	return out
}

// IndexBySymbol maps snapshots by symbol. Later duplicates win.
func IndexBySymbol(assets []model.AssetSnapshot) map[string]model.AssetSnapshot {
	m := make(map[string]model.AssetSnapshot, len(assets))
	for _, a := range assets {
		m[a.Symbol] = a
	}
	return m
}
