// Package journal persists backtest runs: a summary row per run plus the
// trade log and equity curve, to SQLite or CSV.
package journal

import (
	"time"

	"github.com/rustyeddy/backtester/backtest"
)

// TradeRecord is one closed trade attributed to a run.
type TradeRecord struct {
	RunID      string
	Symbol     string
	Side       string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	Commission float64
	PnL        float64
	ReturnPct  float64
	Reason     string
}

// EquitySnapshot is one equity-curve sample attributed to a run.
type EquitySnapshot struct {
	RunID  string
	Time   time.Time
	Equity float64
}

// RunRecord summarizes one completed run.
type RunRecord struct {
	RunID          string
	Created        time.Time
	Strategy       string
	Symbols        string // comma-separated
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalEquity    float64
	Trades         int
	Wins           int
	Losses         int
	ReturnPct      float64
	WinRatePct     float64
	ProfitFactor   float64
	MaxDrawdownPct float64
	SharpeRatio    float64
}

type Journal interface {
	RecordRun(RunRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// RecordResult writes a single-symbol result to j under runID.
func RecordResult(j Journal, runID, strategyName, symbol string, initialCapital float64, res *backtest.Result) error {
	for _, t := range res.Trades {
		if err := j.RecordTrade(tradeRecord(runID, t)); err != nil {
			return err
		}
	}
	for _, p := range res.EquityCurve {
		err := j.RecordEquity(EquitySnapshot{RunID: runID, Time: time.Unix(p.Time, 0).UTC(), Equity: p.Equity})
		if err != nil {
			return err
		}
	}
	return j.RecordRun(runRecord(runID, strategyName, symbol, initialCapital, res.EquityCurve, res.Summary))
}

// RecordPortfolioResult writes a multi-symbol result to j under runID.
func RecordPortfolioResult(j Journal, runID, strategyName, symbols string, initialCapital float64, res *backtest.PortfolioResult) error {
	for _, trades := range res.TradesBySymbol {
		for _, t := range trades {
			if err := j.RecordTrade(tradeRecord(runID, t)); err != nil {
				return err
			}
		}
	}
	for _, p := range res.EquityCurve {
		err := j.RecordEquity(EquitySnapshot{RunID: runID, Time: time.Unix(p.Time, 0).UTC(), Equity: p.Equity})
		if err != nil {
			return err
		}
	}
	return j.RecordRun(runRecord(runID, strategyName, symbols, initialCapital, res.EquityCurve, res.Summary))
}

func tradeRecord(runID string, t backtest.Trade) TradeRecord {
	return TradeRecord{
		RunID:      runID,
		Symbol:     t.Symbol,
		Side:       t.Side.String(),
		Quantity:   t.Quantity,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		EntryTime:  time.Unix(t.EntryTime, 0).UTC(),
		ExitTime:   time.Unix(t.ExitTime, 0).UTC(),
		Commission: t.Commission,
		PnL:        t.PnL,
		ReturnPct:  t.ReturnPct,
		Reason:     t.ExitSignal.Reason,
	}
}

func runRecord(runID, strategyName, symbols string, initialCapital float64, curve []backtest.EquityPoint, s backtest.Summary) RunRecord {
	rec := RunRecord{
		RunID:          runID,
		Created:        time.Now().UTC(),
		Strategy:       strategyName,
		Symbols:        symbols,
		InitialCapital: initialCapital,
		Trades:         s.Trades,
		Wins:           s.Wins,
		Losses:         s.Losses,
		ReturnPct:      s.TotalReturnPct,
		WinRatePct:     s.WinRatePct,
		ProfitFactor:   s.ProfitFactor,
		MaxDrawdownPct: s.MaxDrawdownPct,
		SharpeRatio:    s.SharpeRatio,
	}
	if n := len(curve); n > 0 {
		rec.Start = time.Unix(curve[0].Time, 0).UTC()
		rec.End = time.Unix(curve[n-1].Time, 0).UTC()
		rec.FinalEquity = curve[n-1].Equity
	}
	return rec
}
