// Package strategy implements the condition DSL and per-candle decision
// layer: indicator references, composable conditions, strategies built from
// entry/exit rules, and the read-only context a strategy sees each step.
package strategy

// Kind is the instruction a Signal carries to the engine.
type Kind int

const (
	Hold Kind = iota
	Long
	Short
	Exit
)

func (k Kind) String() string {
	switch k {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	case Exit:
		return "EXIT"
	default:
		return "HOLD"
	}
}

// Signal is produced fresh by a strategy every candle and never mutated.
// Strength is a score in [0,1] used for ranking and admission; constructors
// default it to 1 so strategies that never score still pass a zero
// minimum-strength gate.
type Signal struct {
	Kind     Kind
	Time     int64
	Price    float64
	Reason   string
	Strength float64
}

// WithStrength returns a copy of the signal carrying the given score.
func (s Signal) WithStrength(strength float64) Signal {
	s.Strength = strength
	return s
}

// NewSignal builds a signal of the given kind stamped with time and price.
func NewSignal(kind Kind, ts int64, price float64, reason string) Signal {
	return Signal{Kind: kind, Time: ts, Price: price, Reason: reason, Strength: 1}
}
