// Package indicators computes index-aligned technical indicator series for
// the backtest engines. A Spec names a computation plus its parameters; the
// resulting series uses NaN for bars where the indicator has no value yet.
package indicators

import (
	"fmt"
	"strings"
)

// Spec identifies one indicator computation: a name plus numeric parameters.
// Specs are comparable by Key(), which is how engines deduplicate the set of
// series a strategy requires.
type Spec struct {
	Name   string
	Params []int
}

// SMA returns the spec for a simple moving average over period bars.
func SMA(period int) Spec { return Spec{Name: "sma", Params: []int{period}} }

// EMA returns the spec for an exponential moving average over period bars.
func EMA(period int) Spec { return Spec{Name: "ema", Params: []int{period}} }

// RSI returns the spec for Wilder's relative strength index over period bars.
func RSI(period int) Spec { return Spec{Name: "rsi", Params: []int{period}} }

// ATR returns the spec for the average true range over period bars.
func ATR(period int) Spec { return Spec{Name: "atr", Params: []int{period}} }

// MACD returns the spec for the MACD line (fast EMA - slow EMA).
func MACD(fast, slow, signal int) Spec {
	return Spec{Name: "macd", Params: []int{fast, slow, signal}}
}

// MACDSignal returns the spec for the EMA of the MACD line.
func MACDSignal(fast, slow, signal int) Spec {
	return Spec{Name: "macd_signal", Params: []int{fast, slow, signal}}
}

// Key returns the stable identifier for the computed series, e.g. "ema_20"
// or "macd_signal_12_26_9".
func (s Spec) Key() string {
	var b strings.Builder
	b.WriteString(s.Name)
	for _, p := range s.Params {
		fmt.Fprintf(&b, "_%d", p)
	}
	return b.String()
}

// WarmupBars returns how many leading bars carry no value for this spec.
func (s Spec) WarmupBars() int {
	switch s.Name {
	case "sma", "ema":
		return s.Params[0] - 1
	case "rsi", "atr":
		return s.Params[0]
	case "macd":
		return s.Params[1] - 1
	case "macd_signal":
		return s.Params[1] + s.Params[2] - 2
	default:
		return 0
	}
}

// Validate reports whether the spec names a known computation with sane
// parameters.
func (s Spec) Validate() error {
	var want int
	switch s.Name {
	case "sma", "ema", "rsi", "atr":
		want = 1
	case "macd", "macd_signal":
		want = 3
	default:
		return fmt.Errorf("indicators: unknown indicator %q", s.Name)
	}
	if len(s.Params) != want {
		return fmt.Errorf("indicators: %s wants %d parameters, got %d", s.Name, want, len(s.Params))
	}
	for _, p := range s.Params {
		if p <= 0 {
			return fmt.Errorf("indicators: %s period must be positive, got %d", s.Name, p)
		}
	}
	if s.Name == "macd" || s.Name == "macd_signal" {
		if s.Params[0] >= s.Params[1] {
			return fmt.Errorf("indicators: macd requires fast < slow, got %d >= %d", s.Params[0], s.Params[1])
		}
	}
	return nil
}
