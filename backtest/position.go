package backtest

import "github.com/rustyeddy/backtester/strategy"

// Side: +1 long, -1 short.
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	if s == Short {
		return "SHORT"
	}
	return "LONG"
}

// Position is an open holding in one symbol. It is immutable after entry and
// consumed, not mutated, when closed into a Trade. At most one Position is
// open per symbol at any time.
type Position struct {
	symbol          string
	side            Side
	entryTime       int64
	entryPrice      float64 // post-slippage fill
	qty             float64
	entryCommission float64
	entrySignal     strategy.Signal
}

// NewPosition records an accepted entry fill.
func NewPosition(symbol string, side Side, entryTime int64, entryPrice, qty, entryCommission float64, sig strategy.Signal) *Position {
	return &Position{
		symbol:          symbol,
		side:            side,
		entryTime:       entryTime,
		entryPrice:      entryPrice,
		qty:             qty,
		entryCommission: entryCommission,
		entrySignal:     sig,
	}
}

func (p *Position) Symbol() string { return p.symbol }

func (p *Position) Side() Side { return p.side }

func (p *Position) EntryTime() int64 { return p.entryTime }

func (p *Position) EntryPrice() float64 { return p.entryPrice }

func (p *Position) Quantity() float64 { return p.qty }

func (p *Position) EntryCommission() float64 { return p.entryCommission }

func (p *Position) EntrySignal() strategy.Signal { return p.entrySignal }

func (p *Position) IsLong() bool { return p.side == Long }

func (p *Position) IsShort() bool { return p.side == Short }

// EntryValue is the capital committed at entry, excluding commission.
func (p *Position) EntryValue() float64 { return p.entryPrice * p.qty }

// UnrealizedPnL is the side-signed gross move net of the entry commission.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return float64(p.side)*(price-p.entryPrice)*p.qty - p.entryCommission
}

// Value is the mark-to-market liquidation value at price, before exit costs:
// the cash an exit at that price would return.
func (p *Position) Value(price float64) float64 {
	return p.EntryValue() + float64(p.side)*(price-p.entryPrice)*p.qty
}

// Trade is a closed position with realized economics. Created exactly once,
// by Position.Close.
type Trade struct {
	Symbol      string
	Side        Side
	EntryTime   int64
	ExitTime    int64
	EntryPrice  float64
	ExitPrice   float64
	Quantity    float64
	Commission  float64 // entry + exit
	PnL         float64
	ReturnPct   float64
	EntrySignal strategy.Signal
	ExitSignal  strategy.Signal
}

// Close consumes the position into a Trade at the given post-slippage exit
// fill. PnL is the gross side-signed move minus both commissions; ReturnPct
// is PnL over the committed entry value, in percent.
func (p *Position) Close(exitTime int64, exitPrice, exitCommission float64, exitSig strategy.Signal) Trade {
	gross := float64(p.side) * (exitPrice - p.entryPrice) * p.qty
	pnl := gross - p.entryCommission - exitCommission

	retPct := 0.0
	if ev := p.EntryValue(); ev > 0 {
		retPct = pnl / ev * 100
	}

	return Trade{
		Symbol:      p.symbol,
		Side:        p.side,
		EntryTime:   p.entryTime,
		ExitTime:    exitTime,
		EntryPrice:  p.entryPrice,
		ExitPrice:   exitPrice,
		Quantity:    p.qty,
		Commission:  p.entryCommission + exitCommission,
		PnL:         pnl,
		ReturnPct:   retPct,
		EntrySignal: p.entrySignal,
		ExitSignal:  exitSig,
	}
}
