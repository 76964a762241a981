package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, strategy, symbols, start, end, initial_capital, final_equity,
		 trades, wins, losses, return_pct, win_rate_pct, profit_factor, max_drawdown_pct, sharpe_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Symbols, r.Start, r.End, r.InitialCapital, r.FinalEquity,
		r.Trades, r.Wins, r.Losses, r.ReturnPct, r.WinRatePct, r.ProfitFactor, r.MaxDrawdownPct, r.SharpeRatio,
	)
	return err
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, symbol, side, quantity, entry_price, exit_price, entry_time, exit_time, commission, pnl, return_pct, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Symbol, t.Side, t.Quantity, t.EntryPrice, t.ExitPrice,
		t.EntryTime, t.ExitTime, t.Commission, t.PnL, t.ReturnPct, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`,
		e.RunID, e.Time, e.Equity,
	)
	return err
}

// ListTradesByRun returns the trade log for one run in exit-time order.
func (j *SQLiteJournal) ListTradesByRun(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, symbol, side, quantity, entry_price, exit_price,
		       entry_time, exit_time, commission, pnl, return_pct, reason
		FROM trades WHERE run_id = ? ORDER BY exit_time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		err := rows.Scan(&t.RunID, &t.Symbol, &t.Side, &t.Quantity, &t.EntryPrice, &t.ExitPrice,
			&t.EntryTime, &t.ExitTime, &t.Commission, &t.PnL, &t.ReturnPct, &t.Reason)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetRun loads one run summary.
func (j *SQLiteJournal) GetRun(runID string) (RunRecord, error) {
	var r RunRecord
	err := j.db.QueryRow(`
		SELECT run_id, created, strategy, symbols, start, end, initial_capital, final_equity,
		       trades, wins, losses, return_pct, win_rate_pct, profit_factor, max_drawdown_pct, sharpe_ratio
		FROM runs WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Created, &r.Strategy, &r.Symbols, &r.Start, &r.End, &r.InitialCapital, &r.FinalEquity,
		&r.Trades, &r.Wins, &r.Losses, &r.ReturnPct, &r.WinRatePct, &r.ProfitFactor, &r.MaxDrawdownPct, &r.SharpeRatio)
	return r, err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
