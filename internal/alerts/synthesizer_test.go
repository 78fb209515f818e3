package alerts

import (
	"testing"
	"time"

	"SignalFeed/internal/model"
	"SignalFeed/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func cfg() strategy.Config {
	return strategy.Config{RSIOversold: 30, RSIOverbought: 70, VolumeThreshold: 2, MinConfluence: 2}
}

func buyAsset(symbol string) model.AssetSnapshot {
	return model.AssetSnapshot{
		Symbol:        symbol,
		Price:         90,
		ChangePercent: 2,
		Indicators: model.Indicators{
			RSI:          f(25),
			MACD:         &model.MACD{Line: 1, Signal: 0.2, Histogram: 0.4},
			Bollinger:    &model.Bollinger{Upper: 110, Lower: 95},
			SMA50:        f(85),
			SMA200:       f(80),
			VolumeRatio:  f(3),
			ATR:          f(2),
			CurrentPrice: f(90),
		},
	}
}

// holdAsset nets -1: MACD below signal (-2) against a positive histogram (+1).
func holdAsset(symbol string) model.AssetSnapshot {
	return model.AssetSnapshot{
		Symbol: symbol,
		Price:  100,
		Indicators: model.Indicators{
			RSI:       f(50),
			MACD:      &model.MACD{Line: 0.5, Signal: 1, Histogram: 0.4},
			Bollinger: &model.Bollinger{Upper: 110, Lower: 90},
			ATR:       f(2),
		},
	}
}

func TestReactiveAlerts_StopLossScenario(t *testing.T) {
	positions := []model.Position{{Symbol: "AAPL", BuyPrice: 100, Quantity: 10}}
	current := map[string]model.AssetSnapshot{
		"AAPL": {Symbol: "AAPL", Price: 94, Indicators: model.Indicators{ATR: f(2), RSI: f(50), CurrentPrice: f(94)}},
	}

	got := ReactiveAlerts(positions, current)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, model.AlertStopLoss, a.Type)
	assert.Equal(t, model.PriorityStopLoss, a.Priority)
	assert.Equal(t, 94.0, a.Price)
	assert.Equal(t, 100.0, a.EntryPrice)
	assert.InDelta(t, -6.0, a.DrawdownPercent, 1e-9)
	require.NotNil(t, a.Risk.StopLoss)
	assert.InDelta(t, 95.6, *a.Risk.StopLoss, 1e-9)
	assert.NotEmpty(t, a.ID)
}

func TestReactiveAlerts_FiresIffAtOrBelowStop(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		rsi   float64
		fires bool
	}{
		{"above stop", 95.7, 50, false},
		{"below stop", 95.5, 50, true},
		{"oversold uses wider stop", 95.5, 30, false},
		{"overbought uses tighter stop", 95.9, 70, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions := []model.Position{{Symbol: "X", BuyPrice: 100}}
			current := map[string]model.AssetSnapshot{
				"X": {Symbol: "X", Price: tt.price, Indicators: model.Indicators{ATR: f(2), RSI: f(tt.rsi)}},
			}
			got := ReactiveAlerts(positions, current)
			if tt.fires {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestReactiveAlerts_SkipsClosedAndUnknown(t *testing.T) {
	sold := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	positions := []model.Position{
		{Symbol: "CLOSED", BuyPrice: 100, SellDate: &sold},
		{Symbol: "NOATR", BuyPrice: 100},
		{Symbol: "MISSING", BuyPrice: 100},
		{Symbol: "NOPRICE", BuyPrice: 100},
	}
	current := map[string]model.AssetSnapshot{
		"CLOSED":  {Symbol: "CLOSED", Price: 50, Indicators: model.Indicators{ATR: f(2)}},
		"NOATR":   {Symbol: "NOATR", Price: 50},
		"NOPRICE": {Symbol: "NOPRICE", Indicators: model.Indicators{ATR: f(2)}},
	}

	assert.Empty(t, ReactiveAlerts(positions, current))
}

func TestProactiveAlerts(t *testing.T) {
	hold := strategy.ScoreConfluence(holdAsset("MSFT"), cfg())
	require.Equal(t, model.Hold, hold.Recommendation)
	require.Equal(t, -1, hold.Net)

	got := ProactiveAlerts([]model.AssetSnapshot{buyAsset("AAPL"), holdAsset("MSFT")}, cfg())
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, model.AlertBuy, a.Type)
	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, model.PriorityOpportunity, a.Priority)
	assert.Equal(t, model.ConfidenceHigh, a.Confidence)
	assert.True(t, a.Risk.Valid())
	assert.InDelta(t, 90-2*2.5, *a.Risk.StopLoss, 1e-9)
}

func TestProactiveAlerts_UsesAttachedConfluence(t *testing.T) {
	asset := holdAsset("MSFT")
	asset.Confluence = &model.ConfluenceResult{Recommendation: model.Sell, Net: -3, Confidence: model.ConfidenceMedium}

	got := ProactiveAlerts([]model.AssetSnapshot{asset}, cfg())
	require.Len(t, got, 1)
	assert.Equal(t, model.AlertSell, got[0].Type)
	assert.Equal(t, -3, got[0].Net)
}

func TestSynthesize_StopLossSortsFirstAndInputsUntouched(t *testing.T) {
	assets := []model.AssetSnapshot{buyAsset("AAPL"), buyAsset("NVDA")}
	positions := []model.Position{{Symbol: "TSLA", BuyPrice: 100}}
	current := map[string]model.AssetSnapshot{
		"TSLA": {Symbol: "TSLA", Price: 90, Indicators: model.Indicators{ATR: f(2), RSI: f(50)}},
	}

	got := Synthesize(assets, positions, current, cfg())
	require.Len(t, got, 3)
	assert.Equal(t, model.AlertStopLoss, got[0].Type)
	assert.Equal(t, "AAPL", got[1].Symbol)
	assert.Equal(t, "NVDA", got[2].Symbol)

	assert.Nil(t, assets[0].Confluence)
	assert.Nil(t, positions[0].SellDate)
	assert.Len(t, current, 1)
}
