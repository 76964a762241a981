package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *backtest.Result {
	entrySig := strategy.NewSignal(strategy.Long, 1_700_000_000, 100, "cross up")
	exitSig := strategy.NewSignal(strategy.Exit, 1_700_086_400, 110, "cross down")

	pos := backtest.NewPosition("AAPL", backtest.Long, 1_700_000_000, 100, 10, 0, entrySig)
	trade := pos.Close(1_700_086_400, 110, 0, exitSig)

	curve := []backtest.EquityPoint{
		{Time: 1_700_000_000, Equity: 1000},
		{Time: 1_700_086_400, Equity: 1100},
	}

	return &backtest.Result{
		Trades:      []backtest.Trade{trade},
		EquityCurve: curve,
		FinalCash:   1100,
		Summary:     backtest.Summarize(curve, []backtest.Trade{trade}),
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	res := sampleResult()
	require.NoError(t, RecordResult(j, "run-1", "sma-cross", "AAPL", 1000, res))

	run, err := j.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "sma-cross", run.Strategy)
	assert.Equal(t, "AAPL", run.Symbols)
	assert.Equal(t, 1000.0, run.InitialCapital)
	assert.Equal(t, 1100.0, run.FinalEquity)
	assert.Equal(t, 1, run.Trades)
	assert.Equal(t, 1, run.Wins)
	assert.InDelta(t, 10, run.ReturnPct, 1e-9)
	assert.True(t, run.Start.Equal(time.Unix(1_700_000_000, 0)))
	assert.True(t, run.End.Equal(time.Unix(1_700_086_400, 0)))

	trades, err := j.ListTradesByRun("run-1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	got := trades[0]
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, "LONG", got.Side)
	assert.Equal(t, 10.0, got.Quantity)
	assert.Equal(t, 100.0, got.EntryPrice)
	assert.Equal(t, 110.0, got.ExitPrice)
	assert.InDelta(t, 100, got.PnL, 1e-9)
	assert.Equal(t, "cross down", got.Reason)
	assert.True(t, got.EntryTime.Equal(time.Unix(1_700_000_000, 0)))

	none, err := j.ListTradesByRun("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteGetRunMissing(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer j.Close()

	_, err = j.GetRun("missing")
	require.Error(t, err)
}

func TestCSVJournal(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "journal")
	j, err := NewCSV(dir)
	require.NoError(t, err)

	require.NoError(t, RecordResult(j, "run-1", "sma-cross", "AAPL", 1000, sampleResult()))
	require.NoError(t, j.Close())

	rows := readCSVFile(t, filepath.Join(dir, "trades.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "run_id", rows[0][0])
	assert.Equal(t, "run-1", rows[1][0])
	assert.Equal(t, "AAPL", rows[1][1])
	assert.Equal(t, "LONG", rows[1][2])
	assert.Equal(t, "100", rows[1][9]) // pnl

	rows = readCSVFile(t, filepath.Join(dir, "equity.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, "1000", rows[1][2])
	assert.Equal(t, "1100", rows[2][2])

	rows = readCSVFile(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "sma-cross", rows[1][2])
	assert.Equal(t, "1100", rows[1][7]) // final_equity
}

func TestRecordPortfolioResult(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "journal")
	j, err := NewCSV(dir)
	require.NoError(t, err)

	single := sampleResult()
	res := &backtest.PortfolioResult{
		TradesBySymbol: map[string][]backtest.Trade{"AAPL": single.Trades},
		EquityCurve:    single.EquityCurve,
		FinalCash:      single.FinalCash,
		Summary:        single.Summary,
	}
	require.NoError(t, RecordPortfolioResult(j, "run-2", "sma-cross", "AAPL,MSFT", 1000, res))
	require.NoError(t, j.Close())

	rows := readCSVFile(t, filepath.Join(dir, "runs.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "AAPL,MSFT", rows[1][3])
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
