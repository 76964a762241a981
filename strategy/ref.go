package strategy

import (
	"fmt"

	"github.com/rustyeddy/backtester/indicators"
)

// Source yields a numeric value at the current and previous bar. It carries
// the list of indicator computations the engine must precompute for it.
type Source interface {
	Key() string
	Required() []indicators.Spec
	Value(ctx *Context) (float64, bool)
	Prev(ctx *Context) (float64, bool)
}

// Ref wraps a Source with the fluent condition-building methods, so every
// reference gains the comparison DSL uniformly.
type Ref struct {
	Source
}

// Indicator returns a reference to the series computed for spec.
func Indicator(spec indicators.Spec) Ref {
	return Ref{indicatorSource{spec: spec}}
}

// Price returns a reference to the raw close price.
func Price() Ref {
	return Ref{priceSource{}}
}

type indicatorSource struct {
	spec indicators.Spec
}

func (s indicatorSource) Key() string { return s.spec.Key() }

func (s indicatorSource) Required() []indicators.Spec { return []indicators.Spec{s.spec} }

func (s indicatorSource) Value(ctx *Context) (float64, bool) { return ctx.Indicator(s.spec.Key()) }

func (s indicatorSource) Prev(ctx *Context) (float64, bool) { return ctx.IndicatorPrev(s.spec.Key()) }

type priceSource struct{}

func (priceSource) Key() string { return "close" }

func (priceSource) Required() []indicators.Spec { return nil }

func (priceSource) Value(ctx *Context) (float64, bool) { return ctx.Close(), true }

func (priceSource) Prev(ctx *Context) (float64, bool) {
	c, ok := ctx.PrevCandle()
	if !ok {
		return 0, false
	}
	return c.Close, true
}

// Above is true while the reference is strictly above the threshold.
func (r Ref) Above(threshold float64) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			v, ok := r.Value(ctx)
			return ok && v > threshold
		},
		req:  r.Required(),
		desc: fmt.Sprintf("%s above %.2f", r.Key(), threshold),
	}
}

// Below is true while the reference is strictly below the threshold.
func (r Ref) Below(threshold float64) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			v, ok := r.Value(ctx)
			return ok && v < threshold
		},
		req:  r.Required(),
		desc: fmt.Sprintf("%s below %.2f", r.Key(), threshold),
	}
}

// Between is true while lo <= value <= hi.
func (r Ref) Between(lo, hi float64) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			v, ok := r.Value(ctx)
			return ok && v >= lo && v <= hi
		},
		req:  r.Required(),
		desc: fmt.Sprintf("%s between %.2f and %.2f", r.Key(), lo, hi),
	}
}

// Equals is true while the value is within tolerance of target.
func (r Ref) Equals(target, tolerance float64) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			v, ok := r.Value(ctx)
			if !ok {
				return false
			}
			d := v - target
			if d < 0 {
				d = -d
			}
			return d <= tolerance
		},
		req:  r.Required(),
		desc: fmt.Sprintf("%s equals %.2f (tol %.4f)", r.Key(), target, tolerance),
	}
}

// CrossesAbove fires on the bar where the reference moves from at-or-below
// the threshold to above it: prev <= threshold && now > threshold. False when
// either sample is unavailable.
func (r Ref) CrossesAbove(threshold float64) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			now, ok1 := r.Value(ctx)
			prev, ok2 := r.Prev(ctx)
			return ok1 && ok2 && prev <= threshold && now > threshold
		},
		req:  r.Required(),
		desc: fmt.Sprintf("%s crosses above %.2f", r.Key(), threshold),
	}
}

// CrossesBelow fires on the bar where the reference moves from at-or-above
// the threshold to below it: prev >= threshold && now < threshold.
func (r Ref) CrossesBelow(threshold float64) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			now, ok1 := r.Value(ctx)
			prev, ok2 := r.Prev(ctx)
			return ok1 && ok2 && prev >= threshold && now < threshold
		},
		req:  r.Required(),
		desc: fmt.Sprintf("%s crosses below %.2f", r.Key(), threshold),
	}
}

// AboveRef is true while this reference is strictly above the other.
func (r Ref) AboveRef(o Ref) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			a, ok1 := r.Value(ctx)
			b, ok2 := o.Value(ctx)
			return ok1 && ok2 && a > b
		},
		req:  mergeRequired(r.Required(), o.Required()),
		desc: fmt.Sprintf("%s above %s", r.Key(), o.Key()),
	}
}

// BelowRef is true while this reference is strictly below the other.
func (r Ref) BelowRef(o Ref) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			a, ok1 := r.Value(ctx)
			b, ok2 := o.Value(ctx)
			return ok1 && ok2 && a < b
		},
		req:  mergeRequired(r.Required(), o.Required()),
		desc: fmt.Sprintf("%s below %s", r.Key(), o.Key()),
	}
}

// CrossesAboveRef fires when this reference moves from strictly below to
// strictly above the other: prev < oPrev && now > oNow. Unlike the threshold
// form above, both inequalities are strict; the asymmetry is intentional.
func (r Ref) CrossesAboveRef(o Ref) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			now, ok1 := r.Value(ctx)
			prev, ok2 := r.Prev(ctx)
			oNow, ok3 := o.Value(ctx)
			oPrev, ok4 := o.Prev(ctx)
			return ok1 && ok2 && ok3 && ok4 && prev < oPrev && now > oNow
		},
		req:  mergeRequired(r.Required(), o.Required()),
		desc: fmt.Sprintf("%s crosses above %s", r.Key(), o.Key()),
	}
}

// CrossesBelowRef fires when this reference moves from strictly above to
// strictly below the other: prev > oPrev && now < oNow.
func (r Ref) CrossesBelowRef(o Ref) Condition {
	return cond{
		eval: func(ctx *Context) bool {
			now, ok1 := r.Value(ctx)
			prev, ok2 := r.Prev(ctx)
			oNow, ok3 := o.Value(ctx)
			oPrev, ok4 := o.Prev(ctx)
			return ok1 && ok2 && ok3 && ok4 && prev > oPrev && now < oNow
		},
		req:  mergeRequired(r.Required(), o.Required()),
		desc: fmt.Sprintf("%s crosses below %s", r.Key(), o.Key()),
	}
}
