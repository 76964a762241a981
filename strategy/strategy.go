package strategy

import (
	"fmt"

	"github.com/rustyeddy/backtester/indicators"
)

// Strategy turns the per-candle context into a Signal using its condition
// trees. Exit checks always run before entry checks within the same step.
type Strategy struct {
	name       string
	entry      Condition
	exit       Condition
	shortEntry Condition
	shortExit  Condition
	warmup     int // explicit override, 0 derives from indicators
	score      func(ctx *Context) float64
}

func (s *Strategy) Name() string { return s.name }

// Required returns the deduplicated union of indicator specs across all
// entry/exit conditions.
func (s *Strategy) Required() []indicators.Spec {
	lists := [][]indicators.Spec{s.entry.Required(), s.exit.Required()}
	if s.shortEntry != nil {
		lists = append(lists, s.shortEntry.Required())
	}
	if s.shortExit != nil {
		lists = append(lists, s.shortExit.Required())
	}
	return mergeRequired(lists...)
}

// WarmupPeriod returns how many leading candles the strategy cannot act on.
// An explicit override wins; otherwise it is one more than the longest
// warmup among required indicators (the extra bar covers prev-value
// lookups), with a floor of 1.
func (s *Strategy) WarmupPeriod() int {
	if s.warmup > 0 {
		return s.warmup
	}
	warmup := 0
	for _, spec := range s.Required() {
		if w := spec.WarmupBars(); w > warmup {
			warmup = w
		}
	}
	if warmup+1 > 1 {
		return warmup + 1
	}
	return 1
}

// OnCandle evaluates the condition trees against ctx in priority order:
// long exit, short exit, long entry, short entry, hold.
func (s *Strategy) OnCandle(ctx *Context) Signal {
	if ctx.IsLong() && s.exit.Evaluate(ctx) {
		return ctx.ExitSignal(s.exit.Description())
	}
	if ctx.IsShort() && s.shortExit != nil && s.shortExit.Evaluate(ctx) {
		return ctx.ExitSignal(s.shortExit.Description())
	}
	if !ctx.HasPosition() && s.entry.Evaluate(ctx) {
		return s.scored(ctx, ctx.LongSignal(s.entry.Description()))
	}
	if !ctx.HasPosition() && s.shortEntry != nil && s.shortEntry.Evaluate(ctx) {
		return s.scored(ctx, ctx.ShortSignal(s.shortEntry.Description()))
	}
	return ctx.HoldSignal()
}

// scored applies the optional strength scorer to an entry signal, clamping
// the score into [0,1].
func (s *Strategy) scored(ctx *Context, sig Signal) Signal {
	if s.score == nil {
		return sig
	}
	v := s.score(ctx)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return sig.WithStrength(v)
}

// Builder assembles a Strategy. Build fails unless both an entry and an
// exit condition have been set.
type Builder struct {
	name       string
	entry      Condition
	exit       Condition
	shortEntry Condition
	shortExit  Condition
	warmup     int
	score      func(ctx *Context) float64
}

func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Entry sets the long entry condition.
func (b *Builder) Entry(c Condition) *Builder {
	b.entry = c
	return b
}

// Exit sets the long exit condition.
func (b *Builder) Exit(c Condition) *Builder {
	b.exit = c
	return b
}

// Short adds short-side entry and exit conditions. The concrete condition
// types may differ from the long side; the Condition interface erases them.
func (b *Builder) Short(entry, exit Condition) *Builder {
	b.shortEntry = entry
	b.shortExit = exit
	return b
}

// Warmup overrides the derived warmup period.
func (b *Builder) Warmup(n int) *Builder {
	b.warmup = n
	return b
}

// Score sets an optional scorer whose value, clamped into [0,1], becomes the
// strength of every entry signal. Unscored signals default to strength 1.
func (b *Builder) Score(fn func(ctx *Context) float64) *Builder {
	b.score = fn
	return b
}

func (b *Builder) Build() (*Strategy, error) {
	if b.name == "" {
		return nil, fmt.Errorf("strategy: name is required")
	}
	if b.entry == nil {
		return nil, fmt.Errorf("strategy %q: entry condition is required", b.name)
	}
	if b.exit == nil {
		return nil, fmt.Errorf("strategy %q: exit condition is required", b.name)
	}
	if b.warmup < 0 {
		return nil, fmt.Errorf("strategy %q: warmup must be non-negative, got %d", b.name, b.warmup)
	}
	return &Strategy{
		name:       b.name,
		entry:      b.entry,
		exit:       b.exit,
		shortEntry: b.shortEntry,
		shortExit:  b.shortExit,
		warmup:     b.warmup,
		score:      b.score,
	}, nil
}
