package backtest

import (
	"context"
	"testing"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = int64(86_400)

func flatCandles(closes ...float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Time:   1_700_000_000 + int64(i)*day,
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

// crossStrategy goes long when the close crosses above entryAt and exits when
// it crosses above exitAt. Warmup derives to 1 since only price is used.
func crossStrategy(t *testing.T, entryAt, exitAt float64) *strategy.Strategy {
	t.Helper()
	s, err := strategy.NewBuilder("cross").
		Entry(strategy.Price().CrossesAbove(entryAt)).
		Exit(strategy.Price().CrossesAbove(exitAt)).
		Build()
	require.NoError(t, err)
	return s
}

// shortOnlyStrategy never goes long; it shorts when the close crosses below
// entryAt and covers when it crosses back above it.
func shortOnlyStrategy(t *testing.T, entryAt float64) *strategy.Strategy {
	t.Helper()
	never := strategy.Price().Above(1e12)
	s, err := strategy.NewBuilder("short-only").
		Entry(never).
		Exit(never).
		Short(strategy.Price().CrossesBelow(entryAt), strategy.Price().CrossesAbove(entryAt)).
		Build()
	require.NoError(t, err)
	return s
}

func TestRunLongRoundTrip(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig().InitialCapital(1000).Build()
	require.NoError(t, err)

	candles := flatCandles(90, 100, 110, 120)
	res, err := Run(context.Background(), "AAPL", crossStrategy(t, 95, 105), candles, cfg)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, "AAPL", trade.Symbol)
	assert.Equal(t, Long, trade.Side)
	assert.Equal(t, 100.0, trade.EntryPrice)
	assert.Equal(t, 110.0, trade.ExitPrice)
	assert.InDelta(t, 10, trade.Quantity, 1e-9)
	assert.InDelta(t, 100, trade.PnL, 1e-9)
	assert.InDelta(t, 10, trade.ReturnPct, 1e-9)

	assert.InDelta(t, 1100, res.FinalCash, 1e-9)
	assert.Nil(t, res.OpenPosition)

	// One equity point per walked candle: 1000 while the position is flat at
	// its entry mark, 1100 after the exit.
	require.Len(t, res.EquityCurve, 3)
	assert.InDelta(t, 1000, res.EquityCurve[0].Equity, 1e-9)
	assert.InDelta(t, 1100, res.EquityCurve[1].Equity, 1e-9)
	assert.InDelta(t, 1100, res.EquityCurve[2].Equity, 1e-9)

	assert.InDelta(t, 10, res.Summary.TotalReturnPct, 1e-9)
	assert.Equal(t, 1, res.Summary.Trades)
	assert.Equal(t, 1, res.Summary.Wins)
}

func TestRunShortGate(t *testing.T) {
	t.Parallel()

	candles := flatCandles(100, 90, 80)

	t.Run("dropped_when_disallowed", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewConfig().InitialCapital(1000).Build()
		require.NoError(t, err)

		res, err := Run(context.Background(), "X", shortOnlyStrategy(t, 95), candles, cfg)
		require.NoError(t, err)
		assert.Empty(t, res.Trades)
		assert.Nil(t, res.OpenPosition)
		assert.InDelta(t, 1000, res.FinalCash, 1e-9)
	})

	t.Run("fills_when_allowed", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewConfig().InitialCapital(1000).AllowShort(true).Build()
		require.NoError(t, err)

		res, err := Run(context.Background(), "X", shortOnlyStrategy(t, 95), candles, cfg)
		require.NoError(t, err)

		require.Len(t, res.Trades, 1)
		trade := res.Trades[0]
		assert.Equal(t, Short, trade.Side)
		assert.Equal(t, 90.0, trade.EntryPrice)
		assert.Equal(t, 80.0, trade.ExitPrice)
		assert.Equal(t, "end_of_data", trade.ExitSignal.Reason)
		assert.Greater(t, trade.PnL, 0.0)
		assert.Greater(t, res.FinalCash, 1000.0)
	})
}

func TestRunStopLoss(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig().InitialCapital(1000).StopLoss(0.05).Build()
	require.NoError(t, err)

	candles := flatCandles(90, 100, 94, 95)
	res, err := Run(context.Background(), "X", crossStrategy(t, 95, 1e12), candles, cfg)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, "stop_loss", trade.ExitSignal.Reason)
	assert.Equal(t, 94.0, trade.ExitPrice)
	assert.InDelta(t, -60, trade.PnL, 1e-9)
}

func TestRunTakeProfit(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig().InitialCapital(1000).TakeProfit(0.05).Build()
	require.NoError(t, err)

	candles := flatCandles(90, 100, 106, 105)
	res, err := Run(context.Background(), "X", crossStrategy(t, 95, 1e12), candles, cfg)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, "take_profit", trade.ExitSignal.Reason)
	assert.Equal(t, 106.0, trade.ExitPrice)
	assert.InDelta(t, 60, trade.PnL, 1e-9)
}

func TestRunRiskBasisIntrabar(t *testing.T) {
	t.Parallel()

	// The third bar dips to 94 intrabar but closes back at 100: a close-basis
	// stop never sees the dip, an intrabar stop does. Either way the exit
	// fills at the close.
	candles := flatCandles(90, 100, 100, 97)
	candles[2].Low = 94

	strat := crossStrategy(t, 95, 1e12)

	closeCfg, err := NewConfig().InitialCapital(1000).StopLoss(0.05).Build()
	require.NoError(t, err)
	res, err := Run(context.Background(), "X", strat, candles, closeCfg)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "end_of_data", res.Trades[0].ExitSignal.Reason)

	intrabarCfg, err := NewConfig().InitialCapital(1000).StopLoss(0.05).
		RiskBasis(RiskBasisIntrabar).Build()
	require.NoError(t, err)
	res, err = Run(context.Background(), "X", strat, candles, intrabarCfg)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "stop_loss", res.Trades[0].ExitSignal.Reason)
	assert.Equal(t, 100.0, res.Trades[0].ExitPrice)
}

func TestRunCloseAtEnd(t *testing.T) {
	t.Parallel()

	candles := flatCandles(90, 100, 110)
	strat := crossStrategy(t, 95, 1e12)

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewConfig().InitialCapital(1000).Build()
		require.NoError(t, err)

		res, err := Run(context.Background(), "X", strat, candles, cfg)
		require.NoError(t, err)
		require.Len(t, res.Trades, 1)
		assert.Equal(t, "end_of_data", res.Trades[0].ExitSignal.Reason)
		assert.Nil(t, res.OpenPosition)
		assert.InDelta(t, 1100, res.FinalCash, 1e-9)
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewConfig().InitialCapital(1000).CloseAtEnd(false).Build()
		require.NoError(t, err)

		res, err := Run(context.Background(), "X", strat, candles, cfg)
		require.NoError(t, err)
		assert.Empty(t, res.Trades)
		require.NotNil(t, res.OpenPosition)
		assert.Equal(t, 100.0, res.OpenPosition.EntryPrice())

		// Equity still marks the open position at the last close.
		last := res.EquityCurve[len(res.EquityCurve)-1]
		assert.InDelta(t, 1100, last.Equity, 1e-9)
	})
}

func TestRunMinSignalStrength(t *testing.T) {
	t.Parallel()

	weak, err := strategy.NewBuilder("weak").
		Entry(strategy.Price().CrossesAbove(95)).
		Exit(strategy.Price().Above(1e12)).
		Score(func(*strategy.Context) float64 { return 0.4 }).
		Build()
	require.NoError(t, err)

	candles := flatCandles(90, 100, 110)

	gated, err := NewConfig().InitialCapital(1000).MinSignalStrength(0.5).Build()
	require.NoError(t, err)
	res, err := Run(context.Background(), "X", weak, candles, gated)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.InDelta(t, 1000, res.FinalCash, 1e-9)

	open, err := NewConfig().InitialCapital(1000).MinSignalStrength(0.3).Build()
	require.NoError(t, err)
	res, err = Run(context.Background(), "X", weak, candles, open)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.InDelta(t, 0.4, res.Trades[0].EntrySignal.Strength, 1e-9)
}

func TestRunCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg, err := NewConfig().InitialCapital(1000).Build()
	require.NoError(t, err)

	res, err := Run(ctx, "X", crossStrategy(t, 95, 105), flatCandles(90, 100, 110, 120), cfg)
	require.NoError(t, err)

	// A pre-cancelled context walks nothing: partial (empty) state, no error.
	assert.Empty(t, res.Trades)
	assert.Empty(t, res.EquityCurve)
	assert.InDelta(t, 1000, res.FinalCash, 1e-9)
}

func TestRunInputValidation(t *testing.T) {
	t.Parallel()

	strat := crossStrategy(t, 95, 105)
	cfg, err := NewConfig().Build()
	require.NoError(t, err)

	_, err = Run(context.Background(), "X", strat, nil, cfg)
	require.Error(t, err)

	bad := cfg
	bad.InitialCapital = -1
	_, err = Run(context.Background(), "X", strat, flatCandles(1, 2), bad)
	require.Error(t, err)

	_, err = RunWithIndicators(context.Background(), "X", strat, flatCandles(1, 2, 3),
		map[string][]float64{"sma_2": {1, 2}}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sma_2")
}

func TestRunCommissionAndSlippage(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig().InitialCapital(1000).SlippagePct(0.01).Commission(1).Build()
	require.NoError(t, err)

	candles := flatCandles(90, 100, 110, 120)
	res, err := Run(context.Background(), "X", crossStrategy(t, 95, 105), candles, cfg)
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.InDelta(t, 101, trade.EntryPrice, 1e-9, "long entry pays up")
	assert.InDelta(t, 108.9, trade.ExitPrice, 1e-9, "long exit receives less")
	assert.InDelta(t, 2, trade.Commission, 1e-9)

	// Cash conservation: final cash equals initial plus realized PnL.
	assert.InDelta(t, 1000+trade.PnL, res.FinalCash, 1e-9)
}
