package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func curve(points ...float64) []EquityPoint {
	out := make([]EquityPoint, len(points))
	for i, e := range points {
		out[i] = EquityPoint{Time: int64(i) * day, Equity: e}
	}
	return out
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil, nil)
	assert.Zero(t, s.Trades)
	assert.Zero(t, s.TotalReturnPct)
	assert.Zero(t, s.SharpeRatio)

	// A single point has no return to measure.
	s = Summarize(curve(1000), nil)
	assert.Zero(t, s.TotalReturnPct)
}

func TestSummarizeTradeStats(t *testing.T) {
	t.Parallel()

	trades := []Trade{
		{Side: Long, PnL: 100, ReturnPct: 10},
		{Side: Long, PnL: -50, ReturnPct: -5},
		{Side: Short, PnL: 30, ReturnPct: 3},
		{Side: Long, PnL: -25, ReturnPct: -2.5},
	}

	s := Summarize(nil, trades)

	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 3, s.LongTrades)
	assert.Equal(t, 1, s.ShortTrades)
	assert.InDelta(t, 50, s.WinRatePct, 1e-9)
	assert.InDelta(t, 130.0/75.0, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 6.5, s.AvgWinPct, 1e-9)
	assert.InDelta(t, -3.75, s.AvgLossPct, 1e-9)
}

func TestSummarizeNoLosses(t *testing.T) {
	t.Parallel()

	s := Summarize(nil, []Trade{{Side: Long, PnL: 10, ReturnPct: 1}})
	assert.Equal(t, 1, s.Wins)
	assert.Zero(t, s.ProfitFactor, "undefined without losses")
	assert.Zero(t, s.AvgLossPct)
	assert.InDelta(t, 100, s.WinRatePct, 1e-9)
}

func TestSummarizeTotalReturn(t *testing.T) {
	t.Parallel()

	s := Summarize(curve(1000, 1050, 1100), nil)
	assert.InDelta(t, 10, s.TotalReturnPct, 1e-9)
	assert.Greater(t, s.AnnualizedReturnPct, s.TotalReturnPct,
		"two days of gains annualize far above the raw return")
}

func TestSummarizeDrawdownAndRecoveries(t *testing.T) {
	t.Parallel()

	// Peak 1200, trough 900: 25% drawdown, recovered once at 1250.
	s := Summarize(curve(1000, 1200, 900, 1100, 1250), nil)
	assert.InDelta(t, 25, s.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 1, s.Recoveries)
	assert.Greater(t, s.CalmarRatio, 0.0)

	// Never recovered: drawdown recorded, recovery not.
	s = Summarize(curve(1000, 1200, 900, 950), nil)
	assert.InDelta(t, 25, s.MaxDrawdownPct, 1e-9)
	assert.Zero(t, s.Recoveries)
}

func TestSummarizeMonotonicCurve(t *testing.T) {
	t.Parallel()

	s := Summarize(curve(1000, 1010, 1020, 1030), nil)
	assert.Zero(t, s.MaxDrawdownPct)
	assert.Zero(t, s.CalmarRatio)
	assert.Greater(t, s.SharpeRatio, 0.0)
	assert.Zero(t, s.SortinoRatio, "no downside samples")
}

func TestSummarizeFlatCurve(t *testing.T) {
	t.Parallel()

	s := Summarize(curve(1000, 1000, 1000), nil)
	assert.Zero(t, s.TotalReturnPct)
	assert.Zero(t, s.SharpeRatio, "zero variance yields no ratio")
	assert.Zero(t, s.MaxDrawdownPct)
}

func TestMeanStd(t *testing.T) {
	t.Parallel()

	mean, std := meanStd([]float64{1, 2, 3, 4})
	assert.InDelta(t, 2.5, mean, 1e-9)
	assert.InDelta(t, 1.118033988749895, std, 1e-9)

	mean, std = meanStd(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestDownsideStd(t *testing.T) {
	t.Parallel()

	// Only the negative samples contribute, averaged over all of them.
	assert.InDelta(t, 0.15, downsideStd([]float64{0.1, -0.3, 0.2, 0}), 1e-9)
	assert.Zero(t, downsideStd([]float64{0.1, 0.2}))
	assert.Zero(t, downsideStd(nil))
}
