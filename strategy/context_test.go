package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nan() float64 { return math.NaN() }

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	candles := testCandles(100, 105, 110)
	ctx := NewContext(candles, 1, nil, 12_345, nil)

	assert.Equal(t, 1, ctx.Index())
	assert.Equal(t, 12_345.0, ctx.Equity())
	assert.Equal(t, 105.0, ctx.Close())
	assert.Equal(t, candles[1].Time, ctx.Time())

	prev, ok := ctx.PrevCandle()
	require.True(t, ok)
	assert.Equal(t, 100.0, prev.Close)

	first := NewContext(candles, 0, nil, 0, nil)
	_, ok = first.PrevCandle()
	assert.False(t, ok)

	_, ok = ctx.CandleAt(-1)
	assert.False(t, ok)
	_, ok = ctx.CandleAt(3)
	assert.False(t, ok)
	c, ok := ctx.CandleAt(2)
	require.True(t, ok)
	assert.Equal(t, 110.0, c.Close)
}

func TestContextIndicatorLookup(t *testing.T) {
	t.Parallel()

	series := map[string][]float64{"sma_2": {nan(), 102.5, 107.5}}
	ctx := NewContext(testCandles(100, 105, 110), 2, nil, 0, series)

	v, ok := ctx.Indicator("sma_2")
	require.True(t, ok)
	assert.Equal(t, 107.5, v)

	p, ok := ctx.IndicatorPrev("sma_2")
	require.True(t, ok)
	assert.Equal(t, 102.5, p)

	_, ok = ctx.IndicatorAt("sma_2", 0)
	assert.False(t, ok, "NaN warmup value must report unavailable")
	_, ok = ctx.Indicator("missing")
	assert.False(t, ok)
	_, ok = ctx.IndicatorAt("sma_2", 5)
	assert.False(t, ok)
}

func TestContextPositionState(t *testing.T) {
	t.Parallel()

	candles := testCandles(100)

	flat := NewContext(candles, 0, nil, 0, nil)
	assert.False(t, flat.HasPosition())
	assert.False(t, flat.IsLong())
	assert.False(t, flat.IsShort())
	assert.Nil(t, flat.Position())

	long := NewContext(candles, 0, stubPosition{long: true}, 0, nil)
	assert.True(t, long.HasPosition())
	assert.True(t, long.IsLong())
	assert.False(t, long.IsShort())

	short := NewContext(candles, 0, stubPosition{long: false}, 0, nil)
	assert.True(t, short.IsShort())
	assert.False(t, short.IsLong())
}

func TestContextCrossedAbove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fast []float64
		slow []float64
		want bool
	}{
		{"strict_cross", []float64{9, 12}, []float64{10, 11}, true},
		{"equal_prev_rejected", []float64{10, 12}, []float64{10, 11}, false},
		{"equal_now_rejected", []float64{9, 11}, []float64{10, 11}, false},
		{"warming_up", []float64{nan(), 12}, []float64{10, 11}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			series := map[string][]float64{"fast": tt.fast, "slow": tt.slow}
			ctx := NewContext(testCandles(1, 1), 1, nil, 0, series)
			assert.Equal(t, tt.want, ctx.CrossedAbove("fast", "slow"))
		})
	}

	down := map[string][]float64{"fast": {12, 9}, "slow": {11, 10}}
	ctx := NewContext(testCandles(1, 1), 1, nil, 0, down)
	assert.True(t, ctx.CrossedBelow("fast", "slow"))
	assert.False(t, ctx.CrossedAbove("fast", "slow"))
}

func TestSignalFactories(t *testing.T) {
	t.Parallel()

	candles := testCandles(100, 105)
	ctx := NewContext(candles, 1, nil, 0, nil)

	long := ctx.LongSignal("golden cross")
	assert.Equal(t, Long, long.Kind)
	assert.Equal(t, candles[1].Time, long.Time)
	assert.Equal(t, 105.0, long.Price)
	assert.Equal(t, "golden cross", long.Reason)
	assert.Equal(t, 1.0, long.Strength)

	assert.Equal(t, Short, ctx.ShortSignal("").Kind)
	assert.Equal(t, Exit, ctx.ExitSignal("").Kind)
	assert.Equal(t, Hold, ctx.HoldSignal().Kind)

	weak := long.WithStrength(0.25)
	assert.Equal(t, 0.25, weak.Strength)
	assert.Equal(t, 1.0, long.Strength, "WithStrength must not mutate the original")
}
