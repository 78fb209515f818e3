package generator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"SignalFeed/internal/model"
	"SignalFeed/internal/recommend"
	"SignalFeed/internal/strategy"
)

const (
	ModeRules  = "rules"
	RulesModel = "rules-v1"
)

// Rules derives candidate ideas straight from the scored pool. It needs no
// network access and is deterministic for a given request.
type Rules struct {
	now func() time.Time
}

// NewRules creates a rules generator.
func NewRules() *Rules {
	return &Rules{now: time.Now}
}

// Generate implements recommend.CandidateGenerator.
func (r *Rules) Generate(_ context.Context, req recommend.GenerateRequest) (*recommend.GenerationResult, error) {
	started := r.now()
	var out []model.CandidateIdea

	for _, a := range req.Pool {
		if a.Confluence == nil {
			continue
		}
		if idea := tradeIdea(a); idea != nil {
			out = append(out, idea)
		}
	}

	for _, flag := range req.Regime.RiskFlags {
		out = append(out, model.CandidateIdea{
			"category": model.CategoryRisk,
			"severity": model.SeverityMedium,
			"title":    flag,
			"bullets":  []any{fmt.Sprintf("Regime %s with %s volatility", req.Regime.Regime, req.Regime.VolatilityRegime)},
			"tags":     []any{"regime"},
		})
	}
	if req.Crisis.IsActive {
		out = append(out, model.CandidateIdea{
			"category": model.CategoryRisk,
			"severity": model.SeverityHigh,
			"title":    "Crisis conditions active",
			"bullets":  []any{"Reduce position sizes", "Tighten stops on open positions"},
			"tags":     []any{"crisis"},
		})
	}

	return &recommend.GenerationResult{
		Ideas:      out,
		Model:      RulesModel,
		Mode:       ModeRules,
		DurationMs: r.now().Sub(started).Milliseconds(),
	}, nil
}

func tradeIdea(a model.AssetSnapshot) model.CandidateIdea {
	c := a.Confluence
	var category, action, timeframe string
	switch c.Recommendation {
	case model.StrongBuy:
		category, action, timeframe = model.CategoryStrategic, model.ActionBuy, model.TimeframeMonths
	case model.Buy:
		category, action, timeframe = model.CategoryOpportunistic, model.ActionBuy, model.TimeframeWeeks
	case model.Sell, model.StrongSell:
		category, action, timeframe = model.CategoryOpportunistic, model.ActionSell, model.TimeframeWeeks
	default:
		return nil
	}

	idea := model.CandidateIdea{
		"category":   category,
		"symbol":     a.Symbol,
		"action":     action,
		"confidence": ruleConfidence(c.Net),
		"timeframe":  timeframe,
		"title":      fmt.Sprintf("%s %s on %d-point confluence", action, a.Symbol, abs(c.Net)),
		"rationale":  pointsAsAny(c.Points),
		"tags":       []any{"technical", strings.ToLower(string(c.Recommendation))},
	}
	if stop := stopInvalidation(a, action); stop != "" {
		idea["invalidation"] = stop
	}
	return idea
}

// ruleConfidence maps |net| onto [0.4, 0.95].
func ruleConfidence(net int) float64 {
	conf := 0.4 + 0.06*float64(abs(net))
	return math.Min(conf, 0.95)
}

// stopInvalidation uses the ATR stop of a long entry at the current price.
func stopInvalidation(a model.AssetSnapshot, action string) string {
	if action != model.ActionBuy {
		return ""
	}
	price, ok := a.LastPrice()
	if !ok {
		return ""
	}
	levels := strategy.CalculateRiskLevels(&price, a.Indicators.ATR, a.Indicators.RSI)
	if !levels.Valid() {
		return ""
	}
	return fmt.Sprintf("Close below %.2f (%.1fx ATR stop)", *levels.StopLoss, *levels.ATRMultiplier)
}

func pointsAsAny(points []string) []any {
	out := make([]any, len(points))
	for i, p := range points {
		out[i] = p
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
