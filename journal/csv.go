package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSVJournal writes runs.csv, trades.csv and equity.csv under one directory.
type CSVJournal struct {
	runs, trades, equity *csv.Writer
	files                []*os.File
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	j := &CSVJournal{}

	headers := map[string][]string{
		"runs.csv": {"run_id", "created", "strategy", "symbols", "start", "end",
			"initial_capital", "final_equity", "trades", "wins", "losses",
			"return_pct", "win_rate_pct", "profit_factor", "max_drawdown_pct", "sharpe_ratio"},
		"trades.csv": {"run_id", "symbol", "side", "quantity", "entry_price", "exit_price",
			"entry_time", "exit_time", "commission", "pnl", "return_pct", "reason"},
		"equity.csv": {"run_id", "time", "equity"},
	}

	for _, name := range []string{"runs.csv", "trades.csv", "equity.csv"} {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			j.Close()
			return nil, err
		}
		w := csv.NewWriter(f)
		if err := w.Write(headers[name]); err != nil {
			f.Close()
			j.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			j.Close()
			return nil, err
		}

		j.files = append(j.files, f)
		switch name {
		case "runs.csv":
			j.runs = w
		case "trades.csv":
			j.trades = w
		case "equity.csv":
			j.equity = w
		}
	}

	return j, nil
}

func (j *CSVJournal) RecordRun(r RunRecord) error {
	err := j.runs.Write([]string{
		r.RunID,
		r.Created.Format(time.RFC3339),
		r.Strategy,
		r.Symbols,
		r.Start.Format(time.RFC3339),
		r.End.Format(time.RFC3339),
		f(r.InitialCapital),
		f(r.FinalEquity),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		f(r.ReturnPct),
		f(r.WinRatePct),
		f(r.ProfitFactor),
		f(r.MaxDrawdownPct),
		f(r.SharpeRatio),
	})
	if err != nil {
		return err
	}
	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.RunID,
		t.Symbol,
		t.Side,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.Commission),
		f(t.PnL),
		f(t.ReturnPct),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.RunID,
		e.Time.Format(time.RFC3339),
		f(e.Equity),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	var first error
	for _, f := range j.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
