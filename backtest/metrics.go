package backtest

import "math"

const secondsPerYear = 365.25 * 24 * 3600

// Summary is the pure reduction of an equity curve plus a trade log into
// performance statistics. It never touches engine state and can be
// recomputed freely.
type Summary struct {
	TotalReturnPct      float64
	AnnualizedReturnPct float64
	SharpeRatio         float64
	SortinoRatio        float64
	CalmarRatio         float64
	MaxDrawdownPct      float64
	Recoveries          int // completed drawdown recoveries (equity regained its peak)

	Trades      int
	Wins        int
	Losses      int
	LongTrades  int
	ShortTrades int

	WinRatePct   float64
	ProfitFactor float64
	AvgWinPct    float64
	AvgLossPct   float64
}

// Summarize reduces a time-ordered equity curve and trade log.
func Summarize(curve []EquityPoint, trades []Trade) Summary {
	var s Summary

	s.reduceTrades(trades)
	s.reduceCurve(curve)

	return s
}

func (s *Summary) reduceTrades(trades []Trade) {
	var grossWin, grossLoss, winPct, lossPct float64

	s.Trades = len(trades)
	for _, t := range trades {
		if t.Side == Long {
			s.LongTrades++
		} else {
			s.ShortTrades++
		}
		if t.PnL > 0 {
			s.Wins++
			grossWin += t.PnL
			winPct += t.ReturnPct
		} else {
			s.Losses++
			grossLoss += -t.PnL
			lossPct += t.ReturnPct
		}
	}

	if s.Trades > 0 {
		s.WinRatePct = 100 * float64(s.Wins) / float64(s.Trades)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossWin / grossLoss
	}
	if s.Wins > 0 {
		s.AvgWinPct = winPct / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPct = lossPct / float64(s.Losses)
	}
}

func (s *Summary) reduceCurve(curve []EquityPoint) {
	if len(curve) < 2 || curve[0].Equity <= 0 {
		return
	}

	first, last := curve[0], curve[len(curve)-1]
	s.TotalReturnPct = (last.Equity - first.Equity) / first.Equity * 100

	elapsed := float64(last.Time - first.Time)
	if elapsed > 0 {
		growth := last.Equity / first.Equity
		if growth > 0 {
			s.AnnualizedReturnPct = (math.Pow(growth, secondsPerYear/elapsed) - 1) * 100
		}
	}

	// Per-sample returns for the risk ratios.
	rets := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity > 0 {
			rets = append(rets, curve[i].Equity/curve[i-1].Equity-1)
		}
	}
	periodsPerYear := secondsPerYear * float64(len(rets)) / math.Max(elapsed, 1)

	mean, std := meanStd(rets)
	if std > 0 {
		s.SharpeRatio = mean / std * math.Sqrt(periodsPerYear)
	}

	if down := downsideStd(rets); down > 0 {
		s.SortinoRatio = mean / down * math.Sqrt(periodsPerYear)
	}

	// Max drawdown and recovery count over the curve.
	peak := first.Equity
	inDrawdown := false
	for _, p := range curve {
		if p.Equity >= peak {
			if inDrawdown {
				s.Recoveries++
				inDrawdown = false
			}
			peak = p.Equity
			continue
		}
		inDrawdown = true
		if dd := (peak - p.Equity) / peak * 100; dd > s.MaxDrawdownPct {
			s.MaxDrawdownPct = dd
		}
	}

	if s.MaxDrawdownPct > 0 {
		s.CalmarRatio = s.AnnualizedReturnPct / s.MaxDrawdownPct
	}
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	std = math.Sqrt(ss / float64(len(xs)))
	return mean, std
}

func downsideStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		if x < 0 {
			ss += x * x
		}
	}
	return math.Sqrt(ss / float64(len(xs)))
}
