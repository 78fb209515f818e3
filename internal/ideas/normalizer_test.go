package ideas

import (
	"strings"
	"testing"
	"time"

	"SignalFeed/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDate = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func TestNormalize_TradeIdea(t *testing.T) {
	raw := model.CandidateIdea{
		"category":     "Opportunistic",
		"symbol":       " nvda ",
		"action":       "buy",
		"confidence":   0.72,
		"timeframe":    "MONTHS",
		"title":        "  Breakout above resistance  ",
		"invalidation": "Close below 110",
		"rationale":    []any{"momentum", " ", "volume", "earnings", "extra"},
		"risks":        []any{"valuation", "rates", "supply"},
		"tags":         []any{"AI", " Semis "},
	}

	idea := Normalize(raw, 0, runDate)

	assert.Equal(t, model.CategoryOpportunistic, idea.Category)
	assert.Equal(t, "NVDA", idea.Symbol)
	assert.Equal(t, model.ActionBuy, idea.Action)
	assert.InDelta(t, 0.72, idea.Confidence, 1e-9)
	assert.Equal(t, model.TimeframeMonths, idea.Timeframe)
	assert.Equal(t, "Breakout above resistance", idea.Title)
	assert.Equal(t, "Close below 110", idea.Invalidation)
	assert.Equal(t, []string{"momentum", "volume", "earnings"}, idea.Rationale)
	assert.Equal(t, []string{"valuation", "rates"}, idea.Risks)
	assert.Equal(t, []string{"ai", "semis"}, idea.Tags)
	assert.Equal(t, "opportunistic-nvda-1-2025-03-14", idea.IdeaID)
	assert.Empty(t, idea.Severity)
	assert.Nil(t, idea.Bullets)
}

func TestNormalize_TradeDefaults(t *testing.T) {
	idea := Normalize(model.CandidateIdea{"category": "moonshot", "action": "HODL", "confidence": "abc"}, 2, runDate)

	assert.Equal(t, model.CategoryStrategic, idea.Category)
	assert.Equal(t, model.ActionWatch, idea.Action)
	assert.Zero(t, idea.Confidence)
	assert.Equal(t, model.TimeframeWeeks, idea.Timeframe)
	assert.Equal(t, DefaultInvalidation, idea.Invalidation)
	assert.Equal(t, "WATCH market", idea.Title)
	assert.Equal(t, "strategic-market-3-2025-03-14", idea.IdeaID)
	assert.NotNil(t, idea.Tags)
	assert.Empty(t, idea.Tags)
}

func TestNormalize_DefaultTitleUsesSymbol(t *testing.T) {
	idea := Normalize(model.CandidateIdea{"symbol": "msft", "action": "SELL"}, 0, runDate)
	assert.Equal(t, "SELL MSFT", idea.Title)
}

func TestNormalize_Confidence(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"in range", 0.4, 0.4},
		{"above one", 7.0, 1},
		{"negative", -0.3, 0},
		{"numeric string", "0.65", 0.65},
		{"integer", 1, 1},
		{"garbage string", "high", 0},
		{"missing", nil, 0},
		{"wrong type", []any{0.5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idea := Normalize(model.CandidateIdea{"confidence": tt.in}, 0, runDate)
			assert.InDelta(t, tt.want, idea.Confidence, 1e-9)
		})
	}
}

func TestNormalize_RiskIdea(t *testing.T) {
	raw := model.CandidateIdea{
		"category":  "RISK",
		"severity":  "High",
		"rationale": []any{"credit spreads widening", "", "vol term structure inverted", "breadth weak", "fourth"},
		"tags":      []any{"Macro"},
	}

	idea := Normalize(raw, 4, runDate)

	assert.Equal(t, model.CategoryRisk, idea.Category)
	assert.Equal(t, model.SeverityHigh, idea.Severity)
	assert.Equal(t, DefaultRiskTitle, idea.Title)
	assert.Equal(t, []string{"credit spreads widening", "vol term structure inverted", "breadth weak"}, idea.Bullets)
	assert.Equal(t, []string{"macro"}, idea.Tags)
	assert.Equal(t, "risk-market-5-2025-03-14", idea.IdeaID)
	assert.Empty(t, idea.Action)
	assert.Empty(t, idea.Invalidation)
	assert.Nil(t, idea.Rationale)
}

func TestNormalize_RiskPrefersBullets(t *testing.T) {
	idea := Normalize(model.CandidateIdea{
		"category":  "risk",
		"severity":  "extreme",
		"bullets":   []any{"a"},
		"rationale": []any{"b"},
	}, 0, runDate)

	assert.Equal(t, model.SeverityMedium, idea.Severity)
	assert.Equal(t, []string{"a"}, idea.Bullets)
}

func TestNormalize_Bounds(t *testing.T) {
	long := strings.Repeat("é", 300)
	var tags []any
	for i := 0; i < 12; i++ {
		tags = append(tags, "T")
	}

	idea := Normalize(model.CandidateIdea{
		"title":        long,
		"invalidation": long,
		"tags":         tags,
	}, 0, runDate)

	assert.Equal(t, MaxTitleLen, len([]rune(idea.Title)))
	assert.Equal(t, MaxInvalidationLen, len([]rune(idea.Invalidation)))
	assert.Len(t, idea.Tags, MaxTags)

	// A derived title is bounded too, even for an absurd symbol.
	derived := Normalize(model.CandidateIdea{"symbol": strings.Repeat("X", 200)}, 0, runDate)
	assert.Equal(t, MaxTitleLen, len([]rune(derived.Title)))
	assert.True(t, strings.HasPrefix(derived.Title, "WATCH XXX"))
	assert.Equal(t, derived, Normalize(derived.Candidate(), 0, runDate))
}

func TestNormalize_IDPassthrough(t *testing.T) {
	assert.Equal(t, "abc-1", Normalize(model.CandidateIdea{"ideaId": "abc-1", "id": "other"}, 0, runDate).IdeaID)
	assert.Equal(t, "other", Normalize(model.CandidateIdea{"id": "other"}, 0, runDate).IdeaID)
	assert.Equal(t, "strategic-market-1-2025-03-14", Normalize(model.CandidateIdea{"ideaId": "  "}, 0, runDate).IdeaID)
	assert.Equal(t, "strategic-market-1-2025-03-14", Normalize(model.CandidateIdea{"ideaId": 42}, 0, runDate).IdeaID)
}

func TestNormalize_NeverPanics(t *testing.T) {
	inputs := []model.CandidateIdea{
		nil,
		{},
		{"category": 5, "symbol": []any{"x"}, "tags": "single", "rationale": map[string]any{"a": 1}},
		{"category": "risk", "bullets": []any{1, nil, "ok"}, "title": 3.2},
	}
	for i, raw := range inputs {
		assert.NotPanics(t, func() { Normalize(raw, i, runDate) })
	}
}

func TestNormalize_FixedPoint(t *testing.T) {
	raws := []model.CandidateIdea{
		{"category": "strategic", "symbol": "aapl", "action": "buy", "confidence": "0.8", "rationale": []any{"x"}, "tags": []any{"Core"}},
		{"category": "opportunistic", "title": strings.Repeat("word ", 60)},
		{"category": "risk", "rationale": []any{"spread"}, "severity": "low"},
		{"category": "risk"},
		{},
		{"category": "opportunistic", "symbol": strings.Repeat("long ", 50), "action": "sell"},
	}
	for i, raw := range raws {
		first := Normalize(raw, i, runDate)
		second := Normalize(first.Candidate(), i, runDate)
		assert.Equal(t, first, second, "candidate %d", i)

		// A different position must not change an already assigned id.
		third := Normalize(first.Candidate(), i+10, runDate.AddDate(0, 0, 1))
		assert.Equal(t, first, third, "candidate %d", i)
	}
}

func TestNormalizeAll_Partition(t *testing.T) {
	raws := []model.CandidateIdea{
		{"category": "strategic", "symbol": "A"},
		{"category": "risk"},
		{"category": "opportunistic", "symbol": "B"},
		{"category": "strategic", "symbol": "C"},
		{"category": "unknown", "symbol": "D"},
	}

	all := NormalizeAll(raws, runDate)
	require.Len(t, all, 5)
	assert.Equal(t, "risk-market-2-2025-03-14", all[1].IdeaID)

	s := Partition(all)
	require.Len(t, s.Strategic, 3)
	assert.Equal(t, "A", s.Strategic[0].Symbol)
	assert.Equal(t, "C", s.Strategic[1].Symbol)
	assert.Equal(t, "D", s.Strategic[2].Symbol)
	require.Len(t, s.Opportunistic, 1)
	require.Len(t, s.Risk, 1)
}

func TestNormalizeAll_DuplicateIDLastWins(t *testing.T) {
	raws := []model.CandidateIdea{
		{"ideaId": "dup", "symbol": "A", "confidence": 0.2},
		{"ideaId": "other", "symbol": "B"},
		{"ideaId": "dup", "symbol": "C", "confidence": 0.9},
	}

	all := NormalizeAll(raws, runDate)
	require.Len(t, all, 2)
	assert.Equal(t, "other", all[0].IdeaID)
	assert.Equal(t, "dup", all[1].IdeaID)
	assert.Equal(t, "C", all[1].Symbol)
	assert.InDelta(t, 0.9, all[1].Confidence, 1e-9)
}
