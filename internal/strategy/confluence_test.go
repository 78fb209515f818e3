package strategy

import (
	"testing"

	"SignalFeed/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func scenarioConfig() Config {
	return Config{RSIOversold: 30, RSIOverbought: 70, VolumeThreshold: 2, MinConfluence: 2}
}

func bullishAsset() model.AssetSnapshot {
	return model.AssetSnapshot{
		Symbol:        "AAPL",
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

func bearishAsset() model.AssetSnapshot {
	return model.AssetSnapshot{
		Symbol:        "TSLA",
		Price:         120,
		ChangePercent: -3,
		Indicators: model.Indicators{
			RSI:          f(80),
			MACD:         &model.MACD{Line: -1, Signal: 0.5, Histogram: -1.5},
			Bollinger:    &model.Bollinger{Upper: 115, Lower: 100},
			SMA50:        f(125),
			SMA200:       f(130),
			VolumeRatio:  f(3),
			CurrentPrice: f(120),
		},
	}
}

func TestScoreConfluence_StrongBuyScenario(t *testing.T) {
	res := ScoreConfluence(bullishAsset(), scenarioConfig())

	assert.Equal(t, model.StrongBuy, res.Recommendation)
	assert.GreaterOrEqual(t, res.Net, 4)
	assert.Equal(t, 9, res.BullPoints)
	assert.Equal(t, 0, res.BearPoints)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
	assert.Len(t, res.Points, 6)
}

func TestScoreConfluence_StrongSellScenario(t *testing.T) {
	res := ScoreConfluence(bearishAsset(), scenarioConfig())

	assert.Equal(t, model.StrongSell, res.Recommendation)
	assert.LessOrEqual(t, res.Net, -4)
	assert.Equal(t, 0, res.BullPoints)
	assert.Equal(t, 9, res.BearPoints)
}

func TestScoreConfluence_MissingMACDOrBollinger(t *testing.T) {
	noMACD := bullishAsset()
	noMACD.Indicators.MACD = nil
	noBands := bullishAsset()
	noBands.Indicators.Bollinger = nil
	empty := model.AssetSnapshot{Symbol: "X"}

	for name, asset := range map[string]model.AssetSnapshot{
		"no macd":      noMACD,
		"no bollinger": noBands,
		"empty":        empty,
	} {
		t.Run(name, func(t *testing.T) {
			res := ScoreConfluence(asset, scenarioConfig())
			assert.Equal(t, model.Hold, res.Recommendation)
			assert.Equal(t, 0, res.Net)
			assert.Equal(t, model.ConfidenceLow, res.Confidence)
			require.NotNil(t, res.Points)
			assert.Empty(t, res.Points)
		})
	}
}

func TestScoreConfluence_NetIsBullMinusBear(t *testing.T) {
	mixed := model.AssetSnapshot{
		Symbol:        "MSFT",
		Price:         100,
		ChangePercent: -1,
		Indicators: model.Indicators{
			RSI:         f(35),
			MACD:        &model.MACD{Line: 2, Signal: 1, Histogram: -0.2},
			Bollinger:   &model.Bollinger{Upper: 120, Lower: 90},
			VolumeRatio: f(2.5),
		},
	}
	res := ScoreConfluence(mixed, scenarioConfig())

	// +1 weak RSI, +2 MACD cross; +1 negative histogram, +1 volume on down move.
	assert.Equal(t, 3, res.BullPoints)
	assert.Equal(t, 2, res.BearPoints)
	assert.Equal(t, res.BullPoints-res.BearPoints, res.Net)
	assert.Equal(t, model.Hold, res.Recommendation)
}

func TestScoreConfluence_PartialIndicatorsContributeNothing(t *testing.T) {
	asset := model.AssetSnapshot{
		Symbol: "NVDA",
		Indicators: model.Indicators{
			MACD:      &model.MACD{Line: 1, Signal: 0, Histogram: 0},
			Bollinger: &model.Bollinger{Upper: 10, Lower: 5},
		},
	}
	res := ScoreConfluence(asset, scenarioConfig())

	assert.Equal(t, 2, res.Net)
	assert.Equal(t, model.Buy, res.Recommendation)
	assert.Equal(t, model.ConfidenceMedium, res.Confidence)
}

func TestScoreConfluence_Deterministic(t *testing.T) {
	a := ScoreConfluence(bullishAsset(), scenarioConfig())
	b := ScoreConfluence(bullishAsset(), scenarioConfig())
	assert.Equal(t, a, b)
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		net  int
		want model.Recommendation
	}{
		{6, model.StrongBuy},
		{4, model.StrongBuy},
		{3, model.Buy},
		{2, model.Buy},
		{1, model.Hold},
		{0, model.Hold},
		{-1, model.Hold},
		{-2, model.Sell},
		{-3, model.Sell},
		{-4, model.StrongSell},
		{-7, model.StrongSell},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.net, 2), "net %d", tt.net)
	}

	// A stricter minimum confluence widens the HOLD band but never the STRONG bands.
	assert.Equal(t, model.Hold, classify(2, 3))
	assert.Equal(t, model.Buy, classify(3, 3))
	assert.Equal(t, model.StrongBuy, classify(4, 3))
}

func TestScoreAll_DoesNotMutateInput(t *testing.T) {
	in := []model.AssetSnapshot{bullishAsset(), bearishAsset()}
	out := ScoreAll(in, scenarioConfig())

	require.Len(t, out, 2)
	assert.Nil(t, in[0].Confluence)
	require.NotNil(t, out[0].Confluence)
	assert.Equal(t, model.StrongBuy, out[0].Confluence.Recommendation)
	assert.Equal(t, model.StrongSell, out[1].Confluence.Recommendation)
}
