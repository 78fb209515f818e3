package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"SignalFeed/internal/model"
	"SignalFeed/internal/recommend"
)

const systemInstruction = `You are a market strategist producing daily investment ideas.
Respond with a single JSON object {"ideas": [...]} and nothing else.
Each idea has "category" (strategic, opportunistic or risk).
Strategic and opportunistic ideas have "symbol", "action" (BUY, SELL or WATCH), "confidence" (0 to 1),
"timeframe" (weeks or months), "title", "invalidation", "rationale" (up to 3 strings),
"risks" (up to 2 strings) and "tags".
Risk ideas have "severity" (low, medium or high), "title", "bullets" (up to 3 strings) and "tags".`

type promptAsset struct {
	Symbol         string   `json:"symbol"`
	Price          float64  `json:"price"`
	ChangePercent  float64  `json:"changePercent"`
	Recommendation string   `json:"recommendation,omitempty"`
	Net            int      `json:"net"`
	Points         []string `json:"points,omitempty"`
	RSI            *float64 `json:"rsi,omitempty"`
	ATR            *float64 `json:"atr,omitempty"`
}

// BuildPrompt renders the user prompt for one generation request.
func BuildPrompt(req recommend.GenerateRequest) (string, error) {
	assets := make([]promptAsset, 0, len(req.Pool))
	for _, a := range req.Pool {
		pa := promptAsset{
			Symbol:        a.Symbol,
			Price:         a.Price,
			ChangePercent: a.ChangePercent,
			RSI:           a.Indicators.RSI,
			ATR:           a.Indicators.ATR,
		}
		if a.Confluence != nil {
			pa.Recommendation = string(a.Confluence.Recommendation)
			pa.Net = a.Confluence.Net
			pa.Points = a.Confluence.Points
		}
		assets = append(assets, pa)
	}

	regime, err := json.Marshal(req.Regime)
	if err != nil {
		return "", fmt.Errorf("encode regime: %w", err)
	}
	pool, err := json.Marshal(assets)
	if err != nil {
		return "", fmt.Errorf("encode pool: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", model.FormatDate(req.Date))
	fmt.Fprintf(&b, "Regime: %s\n", regime)
	if req.Crisis.IsActive {
		b.WriteString("Crisis mode is ACTIVE: favour capital preservation and flag risks.\n")
	}
	fmt.Fprintf(&b, "Candidate pool: %s\n", pool)
	return b.String(), nil
}
