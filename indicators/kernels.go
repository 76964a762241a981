package indicators

import (
	"math"

	"github.com/rustyeddy/backtester/market"
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func sma(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) < period {
		return out
	}

	sum := 0.0
	for i, v := range closes {
		sum += v
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ema seeds with the SMA of the first period closes, then applies the
// standard 2/(n+1) multiplier.
func ema(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) < period {
		return out
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += closes[i]
	}
	prev := seed / float64(period)
	out[period-1] = prev

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		prev = (closes[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// emaOver runs the EMA recurrence over a series that may itself start with
// NaN padding (used for the MACD signal line).
func emaOver(series []float64, period int) []float64 {
	out := nanSlice(len(series))

	start := 0
	for start < len(series) && math.IsNaN(series[start]) {
		start++
	}
	if len(series)-start < period {
		return out
	}

	seed := 0.0
	for i := start; i < start+period; i++ {
		seed += series[i]
	}
	prev := seed / float64(period)
	out[start+period-1] = prev

	k := 2.0 / float64(period+1)
	for i := start + period; i < len(series); i++ {
		prev = (series[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// rsi implements Wilder's RSI: seeded with the simple average of the first
// period gains/losses, then smoothed.
func rsi(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) <= period {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss += -d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func macd(closes []float64, fast, slow, signal int) (line, sig []float64) {
	fastEMA := ema(closes, fast)
	slowEMA := ema(closes, slow)

	line = nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(fastEMA[i]) || math.IsNaN(slowEMA[i]) {
			continue
		}
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sig = emaOver(line, signal)
	return line, sig
}

// atr uses Wilder smoothing over the true range.
func atr(candles []market.Candle, period int) []float64 {
	out := nanSlice(len(candles))
	if len(candles) <= period {
		return out
	}

	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		h, l, pc := candles[i].High, candles[i].Low, candles[i-1].Close
		tr[i] = math.Max(h-l, math.Max(math.Abs(h-pc), math.Abs(l-pc)))
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	prev := sum / float64(period)
	out[period] = prev

	for i := period + 1; i < len(candles); i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = prev
	}
	return out
}
