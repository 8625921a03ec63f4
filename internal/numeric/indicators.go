package numeric

import (
	"math"

	"github.com/markcheno/go-talib"
)

// TA-Lib seeds its lookback window with zeros; the helpers below replace that
// prefix with NaN so the output lines up index for index with the input.

func nanPrefix(series []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(series); i++ {
		series[i] = math.NaN()
	}
	return series
}

func allNaN(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA is the simple moving average over period values.
func SMA(xs []float64, period int) []float64 {
	if period < 1 || len(xs) < period {
		return allNaN(len(xs))
	}
	return nanPrefix(talib.Sma(xs, period), period-1)
}

// EMA is the exponential moving average seeded with the first SMA.
func EMA(xs []float64, period int) []float64 {
	if period < 1 || len(xs) < period {
		return allNaN(len(xs))
	}
	return nanPrefix(talib.Ema(xs, period), period-1)
}

// RSI is Wilder's relative strength index.
func RSI(xs []float64, period int) []float64 {
	if period < 2 || len(xs) <= period {
		return allNaN(len(xs))
	}
	return nanPrefix(talib.Rsi(xs, period), period)
}

// MACD returns the macd line, its signal line and the histogram.
func MACD(xs []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	if fast < 1 || slow <= fast || signal < 1 {
		return allNaN(len(xs)), allNaN(len(xs)), allNaN(len(xs))
	}
	lookback := slow - 1 + signal - 1
	if len(xs) <= lookback {
		return allNaN(len(xs)), allNaN(len(xs)), allNaN(len(xs))
	}
	m, s, h := talib.Macd(xs, fast, slow, signal)
	return nanPrefix(m, lookback), nanPrefix(s, lookback), nanPrefix(h, lookback)
}

// ATR is the average true range of the high, low and close series.
func ATR(high, low, closes []float64, period int) []float64 {
	n := len(closes)
	if len(high) != n || len(low) != n || period < 1 || n <= period {
		return allNaN(n)
	}
	return nanPrefix(talib.Atr(high, low, closes, period), period)
}

// BBands returns the upper, middle and lower Bollinger bands using an SMA basis.
func BBands(xs []float64, period int, devs float64) ([]float64, []float64, []float64) {
	if period < 2 || len(xs) < period {
		return allNaN(len(xs)), allNaN(len(xs)), allNaN(len(xs))
	}
	up, mid, lo := talib.BBands(xs, period, devs, devs, talib.SMA)
	return nanPrefix(up, period-1), nanPrefix(mid, period-1), nanPrefix(lo, period-1)
}
