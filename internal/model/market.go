package model

import "time"

// DateLayout is the canonical day key used for regime rows, idea pools and feeds.
const DateLayout = "2006-01-02"

// FormatDate renders t as a day key.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
