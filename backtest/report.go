package backtest

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// PrintSummary writes a human-readable run report.
func PrintSummary(w io.Writer, name string, initialCapital float64, res *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Backtest: %s\n", name)
	fmt.Fprintln(w, "==================================================")

	if n := len(res.EquityCurve); n > 0 {
		fmt.Fprintf(w, "Start:         %s\n", fmtTime(res.EquityCurve[0].Time))
		fmt.Fprintf(w, "End:           %s\n", fmtTime(res.EquityCurve[n-1].Time))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	s := res.Summary
	fmt.Fprintf(w, "Trades:        %d (%d long / %d short)\n", s.Trades, s.LongTrades, s.ShortTrades)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRatePct)
	if s.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", s.ProfitFactor)
	}
	fmt.Fprintf(w, "Avg Win:       %.2f%%\n", s.AvgWinPct)
	fmt.Fprintf(w, "Avg Loss:      %.2f%%\n", s.AvgLossPct)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", initialCapital)
	fmt.Fprintf(w, "Final Cash:    %.2f\n", res.FinalCash)
	fmt.Fprintf(w, "Return:        %.2f%%\n", s.TotalReturnPct)
	fmt.Fprintf(w, "Annualized:    %.2f%%\n", s.AnnualizedReturnPct)
	fmt.Fprintf(w, "Sharpe:        %.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "Sortino:       %.2f\n", s.SortinoRatio)
	fmt.Fprintf(w, "Calmar:        %.2f\n", s.CalmarRatio)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%% (%d recoveries)\n", s.MaxDrawdownPct, s.Recoveries)

	if res.OpenPosition != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Open Position: %s %s %.4f @ %.4f\n",
			res.OpenPosition.Symbol(), res.OpenPosition.Side(),
			res.OpenPosition.Quantity(), res.OpenPosition.EntryPrice())
	}

	fmt.Fprintln(w)
}

// PrintPortfolioSummary writes a multi-symbol run report.
func PrintPortfolioSummary(w io.Writer, initialCapital float64, res *PortfolioResult) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Portfolio Backtest")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Per Symbol")
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, sym := range sortedKeys(res.TradesBySymbol) {
		var pnl float64
		for _, t := range res.TradesBySymbol[sym] {
			pnl += t.PnL
		}
		fmt.Fprintf(w, "%-10s trades=%-4d pnl=%.2f\n", sym, len(res.TradesBySymbol[sym]), pnl)
	}

	s := res.Summary
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", initialCapital)
	fmt.Fprintf(w, "Final Cash:    %.2f\n", res.FinalCash)
	fmt.Fprintf(w, "Trades:        %d\n", s.Trades)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRatePct)
	fmt.Fprintf(w, "Return:        %.2f%%\n", s.TotalReturnPct)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", s.MaxDrawdownPct)
	fmt.Fprintf(w, "Sharpe:        %.2f\n", s.SharpeRatio)

	if len(res.OpenPositions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Open Positions")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, sym := range sortedKeys(res.OpenPositions) {
			pos := res.OpenPositions[sym]
			fmt.Fprintf(w, "%-10s %s %.4f @ %.4f\n", sym, pos.Side(), pos.Quantity(), pos.EntryPrice())
		}
	}

	fmt.Fprintln(w)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fmtTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
