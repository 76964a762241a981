package strategy

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/backtester/indicators"
)

// Preset is a ready-made strategy configuration for callers that do not want
// to compose the condition DSL directly.
type Preset struct {
	Name        string
	Description string
	Factory     func() (*Strategy, error)
}

var presets = make(map[string]Preset)

// RegisterPreset adds a preset to the registry, keyed by its name.
func RegisterPreset(p Preset) {
	presets[p.Name] = p
}

// GetPreset looks up a preset by name.
func GetPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// NewPresetStrategy builds the named preset's strategy.
func NewPresetStrategy(name string) (*Strategy, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("strategy: unknown preset %q", name)
	}
	return p.Factory()
}

// ListPresets returns all presets sorted by name.
func ListPresets() []Preset {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Preset, 0, len(names))
	for _, name := range names {
		out = append(out, presets[name])
	}
	return out
}

func init() {
	RegisterPreset(Preset{
		Name:        "sma-cross",
		Description: "Long when SMA(10) crosses above SMA(30), exit on the reverse cross",
		Factory: func() (*Strategy, error) {
			fast := Indicator(indicators.SMA(10))
			slow := Indicator(indicators.SMA(30))
			return NewBuilder("sma-cross").
				Entry(fast.CrossesAboveRef(slow)).
				Exit(fast.CrossesBelowRef(slow)).
				Build()
		},
	})

	RegisterPreset(Preset{
		Name:        "ema-cross",
		Description: "EMA(12)/EMA(26) crossover, long and short",
		Factory: func() (*Strategy, error) {
			fast := Indicator(indicators.EMA(12))
			slow := Indicator(indicators.EMA(26))
			return NewBuilder("ema-cross").
				Entry(fast.CrossesAboveRef(slow)).
				Exit(fast.CrossesBelowRef(slow)).
				Short(fast.CrossesBelowRef(slow), fast.CrossesAboveRef(slow)).
				Build()
		},
	})

	RegisterPreset(Preset{
		Name:        "rsi-reversion",
		Description: "Long when RSI(14) crosses below 30, exit when it crosses back above 55",
		Factory: func() (*Strategy, error) {
			rsi := Indicator(indicators.RSI(14))
			return NewBuilder("rsi-reversion").
				Entry(rsi.CrossesBelow(30)).
				Exit(rsi.CrossesAbove(55)).
				Build()
		},
	})

	RegisterPreset(Preset{
		Name:        "macd-momentum",
		Description: "Long when the MACD line crosses above its signal line and price is above SMA(50)",
		Factory: func() (*Strategy, error) {
			line := Indicator(indicators.MACD(12, 26, 9))
			sig := Indicator(indicators.MACDSignal(12, 26, 9))
			trend := Price().AboveRef(Indicator(indicators.SMA(50)))
			return NewBuilder("macd-momentum").
				Entry(And(line.CrossesAboveRef(sig), trend)).
				Exit(line.CrossesBelowRef(sig)).
				Build()
		},
	})
}
