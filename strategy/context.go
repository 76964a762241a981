package strategy

import (
	"math"

	"github.com/rustyeddy/backtester/market"
)

// Position is the read-only view of an open holding a strategy may inspect.
// The backtest engine's position type implements it.
type Position interface {
	IsLong() bool
	IsShort() bool
	EntryPrice() float64
	Quantity() float64
}

// Context is the per-step view handed to conditions and strategies: the
// candle series walked so far, the aligned indicator series, the open
// position (if any), and current equity. It is built fresh every step and
// must not outlive it.
type Context struct {
	candles []market.Candle
	index   int
	pos     Position
	equity  float64
	series  map[string][]float64
}

// NewContext assembles the view for one step. series maps indicator keys to
// candle-aligned values, NaN where the indicator has no value yet.
func NewContext(candles []market.Candle, index int, pos Position, equity float64, series map[string][]float64) *Context {
	return &Context{candles: candles, index: index, pos: pos, equity: equity, series: series}
}

func (c *Context) Index() int { return c.index }

func (c *Context) Equity() float64 { return c.equity }

// Candle returns the candle under evaluation.
func (c *Context) Candle() market.Candle { return c.candles[c.index] }

// PrevCandle returns the prior candle; ok is false at index 0.
func (c *Context) PrevCandle() (market.Candle, bool) {
	if c.index == 0 {
		return market.Candle{}, false
	}
	return c.candles[c.index-1], true
}

// CandleAt returns the candle at i; ok is false out of bounds.
func (c *Context) CandleAt(i int) (market.Candle, bool) {
	if i < 0 || i >= len(c.candles) {
		return market.Candle{}, false
	}
	return c.candles[i], true
}

func (c *Context) Time() int64 { return c.Candle().Time }

func (c *Context) Close() float64 { return c.Candle().Close }

func (c *Context) High() float64 { return c.Candle().High }

func (c *Context) Low() float64 { return c.Candle().Low }

func (c *Context) Volume() int64 { return c.Candle().Volume }

// Indicator returns the named series value at the current index.
func (c *Context) Indicator(key string) (float64, bool) {
	return c.IndicatorAt(key, c.index)
}

// IndicatorPrev returns the named series value at the previous index.
func (c *Context) IndicatorPrev(key string) (float64, bool) {
	return c.IndicatorAt(key, c.index-1)
}

// IndicatorAt returns the named series value at index i. ok is false when
// the key is absent, i is out of range, or the value is still warming up.
func (c *Context) IndicatorAt(key string, i int) (float64, bool) {
	series, exists := c.series[key]
	if !exists || i < 0 || i >= len(series) {
		return 0, false
	}
	v := series[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func (c *Context) HasPosition() bool { return c.pos != nil }

func (c *Context) IsLong() bool { return c.pos != nil && c.pos.IsLong() }

func (c *Context) IsShort() bool { return c.pos != nil && c.pos.IsShort() }

// Position returns the open position view, nil when flat.
func (c *Context) Position() Position { return c.pos }

// CrossedAbove reports whether the fast series moved from strictly below to
// strictly above the slow series between the previous and current bar. Note
// this is stricter than the threshold form used by Ref.CrossesAbove, which
// admits an equal previous sample; both semantics are intentional.
func (c *Context) CrossedAbove(fast, slow string) bool {
	f, ok1 := c.Indicator(fast)
	s, ok2 := c.Indicator(slow)
	fp, ok3 := c.IndicatorPrev(fast)
	sp, ok4 := c.IndicatorPrev(slow)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return fp < sp && f > s
}

// CrossedBelow is the mirror of CrossedAbove.
func (c *Context) CrossedBelow(fast, slow string) bool {
	f, ok1 := c.Indicator(fast)
	s, ok2 := c.Indicator(slow)
	fp, ok3 := c.IndicatorPrev(fast)
	sp, ok4 := c.IndicatorPrev(slow)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return fp > sp && f < s
}

// Signal factories stamping the current timestamp and close.

func (c *Context) HoldSignal() Signal {
	return NewSignal(Hold, c.Time(), c.Close(), "")
}

func (c *Context) LongSignal(reason string) Signal {
	return NewSignal(Long, c.Time(), c.Close(), reason)
}

func (c *Context) ShortSignal(reason string) Signal {
	return NewSignal(Short, c.Time(), c.Close(), reason)
}

func (c *Context) ExitSignal(reason string) Signal {
	return NewSignal(Exit, c.Time(), c.Close(), reason)
}
