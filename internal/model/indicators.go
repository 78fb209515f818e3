package model

// MACD holds the last MACD line, signal line and histogram values.
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger holds the last Bollinger band values.
type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle,omitempty"`
	Lower  float64 `json:"lower"`
}

// Indicators is the per-asset indicator set. Any field may be nil when the
// source could not compute it.
type Indicators struct {
	RSI          *float64   `json:"rsi,omitempty"`
	MACD         *MACD      `json:"macd,omitempty"`
	Bollinger    *Bollinger `json:"bollinger,omitempty"`
	SMA50        *float64   `json:"sma50,omitempty"`
	SMA200       *float64   `json:"sma200,omitempty"`
	VolumeRatio  *float64   `json:"volumeRatio,omitempty"`
	ATR          *float64   `json:"atr,omitempty"`
	CurrentPrice *float64   `json:"currentPrice,omitempty"`
}

// AssetSnapshot is one asset's view for a single evaluation pass.
type AssetSnapshot struct {
	Symbol        string            `json:"symbol"`
	Price         float64           `json:"price"`
	ChangePercent float64           `json:"changePercent"`
	Indicators    Indicators        `json:"indicators"`
	Confluence    *ConfluenceResult `json:"confluence,omitempty"`
}

// LastPrice returns the indicator current price when present, otherwise the
// quoted price. ok is false when neither is usable.
func (a AssetSnapshot) LastPrice() (float64, bool) {
	if a.Indicators.CurrentPrice != nil && *a.Indicators.CurrentPrice > 0 {
		return *a.Indicators.CurrentPrice, true
	}
	if a.Price > 0 {
		return a.Price, true
	}
	return 0, false
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
