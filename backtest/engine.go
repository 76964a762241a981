package backtest

import (
	"context"
	"fmt"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategy"
)

// EquityPoint is one sample of the net-worth curve.
type EquityPoint struct {
	Time   int64
	Equity float64
}

// Result of a single-symbol run. OpenPosition is non-nil only when
// close_at_end is disabled and a position survived the last candle, or when
// the run was cancelled mid-walk.
type Result struct {
	Trades       []Trade
	EquityCurve  []EquityPoint
	FinalCash    float64
	OpenPosition *Position
	Summary      Summary
}

// Run precomputes the strategy's indicator series (one goroutine per
// indicator) and walks the candles sequentially. Cancelling ctx stops the
// walk at the current step and returns the partial trade log and equity
// curve; an open position is reported, never force-closed, on cancellation.
func Run(ctx context.Context, symbol string, strat *strategy.Strategy, candles []market.Candle, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := market.Validate(candles); err != nil {
		return nil, err
	}

	series, err := indicators.ComputeAll(strat.Required(), candles)
	if err != nil {
		return nil, err
	}

	return RunWithIndicators(ctx, symbol, strat, candles, series, cfg)
}

// RunWithIndicators walks candles with caller-supplied indicator series.
// Series must be index-aligned with the candles; misalignment is a caller
// contract violation caught here before the walk starts.
func RunWithIndicators(ctx context.Context, symbol string, strat *strategy.Strategy, candles []market.Candle, series map[string][]float64, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := market.Validate(candles); err != nil {
		return nil, err
	}
	for key, s := range series {
		if len(s) != len(candles) {
			return nil, fmt.Errorf("backtest: indicator %q has %d values for %d candles", key, len(s), len(candles))
		}
	}

	w := &walker{cfg: cfg, symbol: symbol, cash: cfg.InitialCapital}

	last := len(candles) - 1
	for i := strat.WarmupPeriod(); i < len(candles); i++ {
		if ctx.Err() != nil {
			break
		}

		c := candles[i]
		sctx := strategy.NewContext(candles, i, w.view(), w.equity(c.Close), series)

		sig, forced := w.riskExit(c)
		if !forced {
			sig = strat.OnCandle(sctx)
		}
		w.apply(sig, c)

		if i == last && cfg.CloseAtEnd && w.pos != nil {
			w.close(c, strategy.NewSignal(strategy.Exit, c.Time, c.Close, "end_of_data"))
		}

		w.curve = append(w.curve, EquityPoint{Time: c.Time, Equity: w.equity(c.Close)})
	}

	return &Result{
		Trades:       w.trades,
		EquityCurve:  w.curve,
		FinalCash:    w.cash,
		OpenPosition: w.pos,
		Summary:      Summarize(w.curve, w.trades),
	}, nil
}

// walker carries the mutable state of one symbol's sequential walk. The
// portfolio engine embeds one per symbol over a shared cash pool.
type walker struct {
	cfg    Config
	symbol string
	cash   float64
	pos    *Position
	trades []Trade
	curve  []EquityPoint
}

// view adapts the open position for the strategy context. A nil *Position
// must become a nil interface, not an interface holding a nil pointer.
func (w *walker) view() strategy.Position {
	if w.pos == nil {
		return nil
	}
	return w.pos
}

func (w *walker) equity(price float64) float64 {
	if w.pos == nil {
		return w.cash
	}
	return w.cash + w.pos.Value(price)
}

// riskExit synthesizes an Exit signal when the configured stop-loss or
// take-profit level is breached, overriding whatever the strategy would
// emit this step. The exit itself always fills at the close.
func (w *walker) riskExit(c market.Candle) (strategy.Signal, bool) {
	if w.pos == nil || (w.cfg.StopLossPct == 0 && w.cfg.TakeProfitPct == 0) {
		return strategy.Signal{}, false
	}

	stopPrice, takePrice := c.Close, c.Close
	if w.cfg.RiskBasis == RiskBasisIntrabar {
		if w.pos.IsLong() {
			stopPrice, takePrice = c.Low, c.High
		} else {
			stopPrice, takePrice = c.High, c.Low
		}
	}

	side := float64(w.pos.Side())
	entry := w.pos.EntryPrice()

	if w.cfg.StopLossPct > 0 {
		if ret := side * (stopPrice - entry) / entry; ret <= -w.cfg.StopLossPct {
			return strategy.NewSignal(strategy.Exit, c.Time, c.Close, "stop_loss"), true
		}
	}
	if w.cfg.TakeProfitPct > 0 {
		if ret := side * (takePrice - entry) / entry; ret >= w.cfg.TakeProfitPct {
			return strategy.NewSignal(strategy.Exit, c.Time, c.Close, "take_profit"), true
		}
	}
	return strategy.Signal{}, false
}

// apply mutates cash/position state for one signal. Inadmissible signals
// (shorts while disallowed, entries below the strength gate, exits with no
// position) are dropped silently.
func (w *walker) apply(sig strategy.Signal, c market.Candle) {
	switch sig.Kind {
	case strategy.Long, strategy.Short:
		if w.pos != nil {
			return
		}
		if sig.Kind == strategy.Short && !w.cfg.AllowShort {
			return
		}
		if sig.Strength < w.cfg.MinSignalStrength {
			return
		}
		w.open(sig, c, w.cash*w.cfg.PositionSizePct)

	case strategy.Exit:
		if w.pos == nil {
			return
		}
		w.close(c, sig)
	}
}

// open fills an entry against the close with slippage, sizing the quantity
// from the given capital target. A zero quantity (no affordable size) opens
// nothing.
func (w *walker) open(sig strategy.Signal, c market.Candle, target float64) {
	side := Long
	if sig.Kind == strategy.Short {
		side = Short
	}

	entryPrice := w.cfg.ApplyEntrySlippage(c.Close, side == Long)
	qty := w.cfg.sizeFromCapital(target, entryPrice)
	if qty <= 0 {
		return
	}

	commission := w.cfg.CalculateCommission(entryPrice * qty)
	w.cash -= entryPrice*qty + commission
	w.pos = NewPosition(w.symbol, side, c.Time, entryPrice, qty, commission, sig)
}

func (w *walker) close(c market.Candle, sig strategy.Signal) {
	exitPrice := w.cfg.ApplyExitSlippage(c.Close, w.pos.IsLong())
	exitCommission := w.cfg.CalculateCommission(exitPrice * w.pos.Quantity())

	w.cash += w.pos.Value(exitPrice) - exitCommission
	w.trades = append(w.trades, w.pos.Close(c.Time, exitPrice, exitCommission, sig))
	w.pos = nil
}
