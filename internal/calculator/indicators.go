package calculator

import (
	"math"

	"SignalFeed/internal/model"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Indicator periods.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	ATRPeriod       = 14
	VolumeLookback  = 20
)

// Compute derives the indicator set from daily bars (oldest first). Indicators
// that need more history than is available are left nil.
func Compute(bars []model.OHLCV) model.Indicators {
	var ind model.Indicators
	if len(bars) == 0 {
		return ind
	}

	closes := extract(bars, func(b model.OHLCV) float64 { return b.Close })
	ind.CurrentPrice = model.Float(closes[len(closes)-1])

	ind.RSI = CalculateRSI(closes, RSIPeriod)
	ind.MACD = CalculateMACD(closes)
	ind.Bollinger = CalculateBollinger(closes)
	ind.SMA50 = CalculateSMA(closes, 50)
	ind.SMA200 = CalculateSMA(closes, 200)
	ind.ATR = CalculateATR(bars, ATRPeriod)
	ind.VolumeRatio = CalculateVolumeRatio(bars, VolumeLookback)
	return ind
}

// CalculateRSI returns the last RSI value, or nil with fewer than period+1 closes.
func CalculateRSI(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}
	return last(talib.Rsi(closes, period))
}

// CalculateMACD returns the last MACD line, signal and histogram.
func CalculateMACD(closes []float64) *model.MACD {
	if len(closes) < MACDSlow+MACDSignal-1 {
		return nil
	}
	line, signal, hist := talib.Macd(closes, MACDFast, MACDSlow, MACDSignal)
	l, s, h := last(line), last(signal), last(hist)
	if l == nil || s == nil || h == nil {
		return nil
	}
	return &model.MACD{Line: *l, Signal: *s, Histogram: *h}
}

// CalculateBollinger returns the last Bollinger bands over BollingerPeriod closes.
func CalculateBollinger(closes []float64) *model.Bollinger {
	if len(closes) < BollingerPeriod {
		return nil
	}
	upper, middle, lower := talib.BBands(closes, BollingerPeriod, BollingerStdDev, BollingerStdDev, talib.SMA)
	u, m, l := last(upper), last(middle), last(lower)
	if u == nil || m == nil || l == nil {
		return nil
	}
	return &model.Bollinger{Upper: *u, Middle: *m, Lower: *l}
}

// CalculateSMA returns the simple moving average of the last period closes.
func CalculateSMA(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	return last(talib.Sma(closes, period))
}

// CalculateATR returns the Wilder ATR over period bars.
func CalculateATR(bars []model.OHLCV, period int) *float64 {
	if period <= 0 || len(bars) < period+1 {
		return nil
	}
	highs := extract(bars, func(b model.OHLCV) float64 { return b.High })
	lows := extract(bars, func(b model.OHLCV) float64 { return b.Low })
	closes := extract(bars, func(b model.OHLCV) float64 { return b.Close })
	return last(talib.Atr(highs, lows, closes, period))
}

// CalculateVolumeRatio compares the last bar's volume with the mean of the
// lookback bars before it.
func CalculateVolumeRatio(bars []model.OHLCV, lookback int) *float64 {
	if lookback <= 0 || len(bars) < lookback+1 {
		return nil
	}
	n := len(bars)
	prev := extract(bars[n-1-lookback:n-1], func(b model.OHLCV) float64 { return b.Volume })
	mean := stat.Mean(prev, nil)
	if mean <= 0 {
		return nil
	}
	return model.Float(bars[n-1].Volume / mean)
}

// ChangePercent is the percentage move of the last close versus the previous one.
func ChangePercent(bars []model.OHLCV) float64 {
	n := len(bars)
	if n < 2 || bars[n-2].Close == 0 {
		return 0
	}
	return (bars[n-1].Close - bars[n-2].Close) / bars[n-2].Close * 100
}

func extract(bars []model.OHLCV, field func(model.OHLCV) float64) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = field(b)
	}
	return out
}

func last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
