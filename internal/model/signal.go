package model

import "time"

// Recommendation is the confluence classification of an asset.
type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

// IsBuy reports whether r is BUY or STRONG_BUY.
func (r Recommendation) IsBuy() bool { return r == Buy || r == StrongBuy }

// IsSell reports whether r is SELL or STRONG_SELL.
func (r Recommendation) IsSell() bool { return r == Sell || r == StrongSell }

// Confidence grades how decisive a classification is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfluenceResult is the outcome of scoring one asset. It is recomputed on
// every pass and never persisted.
type ConfluenceResult struct {
	Recommendation Recommendation `json:"recommendation"`
	Net            int            `json:"net"`
	BullPoints     int            `json:"bullPoints"`
	BearPoints     int            `json:"bearPoints"`
	Confidence     Confidence     `json:"confidence"`
	Points         []string       `json:"points"`
}

// RiskLevels are ATR based stop-loss and take-profit levels. All fields are nil
// when price or ATR is unavailable.
type RiskLevels struct {
	StopLoss      *float64 `json:"stopLoss"`
	TakeProfit    *float64 `json:"takeProfit"`
	ATRMultiplier *float64 `json:"atrMultiplier"`
}

// Valid reports whether the levels were computed.
func (r RiskLevels) Valid() bool {
	return r.StopLoss != nil && r.TakeProfit != nil && r.ATRMultiplier != nil
}

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertBuy      AlertType = "buy"
	AlertSell     AlertType = "sell"
	AlertStopLoss AlertType = "stoploss"
)

// Alert priorities. Higher surfaces first.
const (
	PriorityOpportunity = 2
	PriorityStopLoss    = 3
)

// Alert is produced for a single evaluation cycle.
type Alert struct {
	ID              string     `json:"id"`
	Type            AlertType  `json:"type"`
	Symbol          string     `json:"symbol"`
	Priority        int        `json:"priority"`
	Confidence      Confidence `json:"confidence"`
	Net             int        `json:"net"`
	Risk            RiskLevels `json:"risk"`
	Price           float64    `json:"price"`
	EntryPrice      float64    `json:"entryPrice,omitempty"`
	DrawdownPercent float64    `json:"drawdownPercent,omitempty"`
	Message         string     `json:"message"`
}

// Position is an externally owned holding, read only here.
type Position struct {
	ID       int64      `json:"id"`
	UserID   string     `json:"userId"`
	Symbol   string     `json:"symbol"`
	BuyPrice float64    `json:"buyPrice"`
	Quantity float64    `json:"quantity"`
	SellDate *time.Time `json:"sellDate,omitempty"`
}

// IsOpen reports whether the position has not been sold.
func (p Position) IsOpen() bool {
	return p.SellDate == nil
}
