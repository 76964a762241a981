package indicators

import (
	"fmt"
	"sync"

	"github.com/rustyeddy/backtester/market"
)

// Compute evaluates one spec against a candle series. The result is aligned
// with the input: result[i] is NaN until the spec's warmup completes.
func Compute(spec Spec, candles []market.Candle) ([]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	closes := market.Closes(candles)

	switch spec.Name {
	case "sma":
		return sma(closes, spec.Params[0]), nil
	case "ema":
		return ema(closes, spec.Params[0]), nil
	case "rsi":
		return rsi(closes, spec.Params[0]), nil
	case "atr":
		return atr(candles, spec.Params[0]), nil
	case "macd":
		line, _ := macd(closes, spec.Params[0], spec.Params[1], spec.Params[2])
		return line, nil
	case "macd_signal":
		_, signal := macd(closes, spec.Params[0], spec.Params[1], spec.Params[2])
		return signal, nil
	}

	return nil, fmt.Errorf("indicators: unknown indicator %q", spec.Name)
}

// ComputeAll evaluates every spec concurrently, one goroutine per spec. Each
// computation is a pure function of the candle series, so there is no shared
// state to guard beyond the result map.
func ComputeAll(specs []Spec, candles []market.Candle) (map[string][]float64, error) {
	out := make(map[string][]float64, len(specs))
	errs := make([]error, len(specs))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec Spec) {
			defer wg.Done()
			series, err := Compute(spec, candles)
			if err != nil {
				errs[i] = err
				return
			}
			mu.Lock()
			out[spec.Key()] = series
			mu.Unlock()
		}(i, spec)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
