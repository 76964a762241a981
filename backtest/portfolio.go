package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategy"
)

// RebalanceMode governs how shared capital is divided when opening new
// positions across symbols.
type RebalanceMode string

const (
	// RebalanceAvailableCapital sizes each entry from whatever cash is left,
	// using the base position_size_pct.
	RebalanceAvailableCapital RebalanceMode = "available_capital"

	// RebalanceEqualWeight reserves initial_capital/slots per entry, where
	// slots is the position limit (or the symbol count when unlimited).
	RebalanceEqualWeight RebalanceMode = "equal_weight"

	// RebalanceCustomWeights sizes each entry as initial_capital*weight;
	// symbols absent from the weight map get nothing.
	RebalanceCustomWeights RebalanceMode = "custom_weights"
)

// PortfolioConfig wraps a base Config with the multi-symbol constraints.
type PortfolioConfig struct {
	Base                   Config             `yaml:"base" json:"base"`
	MaxAllocationPerSymbol float64            `yaml:"max_allocation_per_symbol" json:"max_allocation_per_symbol"` // fraction of initial capital, 0 = no cap
	MaxTotalPositions      int                `yaml:"max_total_positions" json:"max_total_positions"`             // 0 = no limit
	Mode                   RebalanceMode      `yaml:"rebalance_mode" json:"rebalance_mode"`
	Weights                map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty"`
}

// Validate checks the portfolio constraints against the symbol set size.
func (pc *PortfolioConfig) Validate(numSymbols int) error {
	if err := pc.Base.Validate(); err != nil {
		return err
	}
	if numSymbols <= 0 {
		return fmt.Errorf("backtest: portfolio run needs at least one symbol")
	}
	if pc.MaxAllocationPerSymbol < 0 || pc.MaxAllocationPerSymbol > 1 {
		return fmt.Errorf("backtest: max_allocation_per_symbol must be in [0,1], got %.4f", pc.MaxAllocationPerSymbol)
	}
	if pc.MaxTotalPositions < 0 {
		return fmt.Errorf("backtest: max_total_positions must be non-negative, got %d", pc.MaxTotalPositions)
	}
	switch pc.Mode {
	case "", RebalanceAvailableCapital, RebalanceEqualWeight, RebalanceCustomWeights:
	default:
		return fmt.Errorf("backtest: unknown rebalance_mode %q", pc.Mode)
	}
	for sym, w := range pc.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("backtest: weight for %q must be in [0,1], got %.4f", sym, w)
		}
	}
	return nil
}

// AllocationTarget returns the capital to commit to symbol for a new entry:
// the mode's raw target clamped by the per-symbol cap and available cash,
// floored at zero.
func (pc *PortfolioConfig) AllocationTarget(symbol string, availableCash, initialCapital float64, numSymbols int) float64 {
	var target float64

	switch pc.Mode {
	case RebalanceEqualWeight:
		slots := numSymbols
		if pc.MaxTotalPositions > 0 && pc.MaxTotalPositions < slots {
			slots = pc.MaxTotalPositions
		}
		if slots < 1 {
			slots = 1
		}
		target = initialCapital / float64(slots)

	case RebalanceCustomWeights:
		target = initialCapital * pc.Weights[symbol]

	default: // RebalanceAvailableCapital
		target = availableCash * pc.Base.PositionSizePct
	}

	if pc.MaxAllocationPerSymbol > 0 {
		if maxAlloc := pc.MaxAllocationPerSymbol * initialCapital; target > maxAlloc {
			target = maxAlloc
		}
	}
	if target > availableCash {
		target = availableCash
	}
	if target < 0 {
		target = 0
	}
	return target
}

// PortfolioResult of a multi-symbol run.
type PortfolioResult struct {
	TradesBySymbol map[string][]Trade
	EquityCurve    []EquityPoint
	FinalCash      float64
	OpenPositions  map[string]*Position
	Summary        Summary
}

// symbolState tracks one symbol's walk inside the portfolio loop.
type symbolState struct {
	name    string
	strat   *strategy.Strategy
	candles []market.Candle
	series  map[string][]float64
	warmup  int

	ptr       int // next candle to consume
	cur       int // candle index active this step, -1 when not aligned
	lastClose float64
	marked    bool // lastClose is valid
}

// candidate is an admissible entry signal awaiting allocation.
type candidate struct {
	sym *symbolState
	sig strategy.Signal
}

// RunPortfolio steps the union of all symbols' timestamps in ascending
// order, sharing one cash pool. Indicator precomputation runs concurrently
// per symbol; the per-timestamp exit/admission/allocation phase is strictly
// sequential because each allocation consumes cash visible to the next.
//
// Strategies are evaluated only for symbols with a candle exactly at the
// step timestamp; open positions in non-aligned symbols stay marked at
// their last known close.
func RunPortfolio(ctx context.Context, strats map[string]*strategy.Strategy, candlesBySymbol map[string][]market.Candle, cfg PortfolioConfig) (*PortfolioResult, error) {
	if err := cfg.Validate(len(strats)); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(strats))
	for sym := range strats {
		candles, ok := candlesBySymbol[sym]
		if !ok {
			return nil, fmt.Errorf("backtest: no candles for symbol %q", sym)
		}
		if err := market.Validate(candles); err != nil {
			return nil, fmt.Errorf("backtest: symbol %q: %w", sym, err)
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	states := make([]*symbolState, len(symbols))
	var wg sync.WaitGroup
	errs := make([]error, len(symbols))
	for i, sym := range symbols {
		states[i] = &symbolState{
			name:    sym,
			strat:   strats[sym],
			candles: candlesBySymbol[sym],
			warmup:  strats[sym].WarmupPeriod(),
			cur:     -1,
		}
		wg.Add(1)
		go func(s *symbolState, i int) {
			defer wg.Done()
			series, err := indicators.ComputeAll(s.strat.Required(), s.candles)
			if err != nil {
				errs[i] = fmt.Errorf("backtest: symbol %q: %w", s.name, err)
				return
			}
			s.series = series
		}(states[i], i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	p := &portfolio{
		cfg:       cfg,
		states:    states,
		cash:      cfg.Base.InitialCapital,
		positions: make(map[string]*Position),
		trades:    make(map[string][]Trade, len(states)),
	}

	for _, ts := range unionTimestamps(states) {
		if ctx.Err() != nil {
			break
		}
		p.step(ts)
	}

	// A cancelled run stops at the cutoff: open positions are reported, not
	// force-closed against candles the walk never reached.
	if cfg.Base.CloseAtEnd && ctx.Err() == nil {
		p.closeAll()
	}

	return &PortfolioResult{
		TradesBySymbol: p.trades,
		EquityCurve:    p.curve,
		FinalCash:      p.cash,
		OpenPositions:  p.positions,
		Summary:        Summarize(p.curve, p.allTrades()),
	}, nil
}

type portfolio struct {
	cfg       PortfolioConfig
	states    []*symbolState
	cash      float64
	positions map[string]*Position
	trades    map[string][]Trade
	curve     []EquityPoint
}

// step runs one union timestamp: align candles, evaluate strategies, apply
// exits, admit and allocate entries, record equity.
func (p *portfolio) step(ts int64) {
	// Align symbols to this timestamp and refresh marks.
	for _, s := range p.states {
		s.cur = -1
		for s.ptr < len(s.candles) && s.candles[s.ptr].Time < ts {
			s.ptr++
		}
		if s.ptr < len(s.candles) && s.candles[s.ptr].Time == ts {
			s.cur = s.ptr
			s.lastClose = s.candles[s.cur].Close
			s.marked = true
			s.ptr++
		}
	}

	equity := p.equity()

	// Evaluate every aligned symbol once; risk exits override the strategy.
	signals := make(map[string]strategy.Signal, len(p.states))
	for _, s := range p.states {
		if s.cur < 0 || s.cur < s.warmup {
			continue
		}
		c := s.candles[s.cur]
		w := walker{cfg: p.cfg.Base, symbol: s.name, pos: p.positions[s.name]}

		sig, forced := w.riskExit(c)
		if !forced {
			sctx := strategy.NewContext(s.candles, s.cur, w.view(), equity, s.series)
			sig = s.strat.OnCandle(sctx)
		}
		signals[s.name] = sig
	}

	// Exits first: closing frees cash and a position slot before any entry
	// is considered this step.
	for _, s := range p.states {
		sig, ok := signals[s.name]
		if !ok || sig.Kind != strategy.Exit {
			continue
		}
		pos := p.positions[s.name]
		if pos == nil {
			continue
		}
		p.close(s, s.candles[s.cur], sig)
	}

	// Entry admission: rank by strength descending, symbol name ascending.
	var cands []candidate
	for _, s := range p.states {
		sig, ok := signals[s.name]
		if !ok || (sig.Kind != strategy.Long && sig.Kind != strategy.Short) {
			continue
		}
		if p.positions[s.name] != nil {
			continue
		}
		if sig.Kind == strategy.Short && !p.cfg.Base.AllowShort {
			continue
		}
		if sig.Strength < p.cfg.Base.MinSignalStrength {
			continue
		}
		cands = append(cands, candidate{sym: s, sig: sig})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].sig.Strength != cands[j].sig.Strength {
			return cands[i].sig.Strength > cands[j].sig.Strength
		}
		return cands[i].sym.name < cands[j].sym.name
	})

	if limit := p.cfg.MaxTotalPositions; limit > 0 {
		slots := limit - len(p.positions)
		if slots < 0 {
			slots = 0
		}
		if len(cands) > slots {
			cands = cands[:slots]
		}
	}

	// Allocation in ranked order: earlier admissions consume cash visible to
	// later ones within the same step.
	for _, cand := range cands {
		target := p.cfg.AllocationTarget(cand.sym.name, p.cash, p.cfg.Base.InitialCapital, len(p.states))
		p.open(cand.sym, cand.sig, cand.sym.candles[cand.sym.cur], target)
	}

	p.curve = append(p.curve, EquityPoint{Time: ts, Equity: p.equity()})
}

func (p *portfolio) equity() float64 {
	eq := p.cash
	for _, s := range p.states {
		if pos := p.positions[s.name]; pos != nil && s.marked {
			eq += pos.Value(s.lastClose)
		}
	}
	return eq
}

func (p *portfolio) open(s *symbolState, sig strategy.Signal, c market.Candle, target float64) {
	side := Long
	if sig.Kind == strategy.Short {
		side = Short
	}

	entryPrice := p.cfg.Base.ApplyEntrySlippage(c.Close, side == Long)
	qty := p.cfg.Base.sizeFromCapital(target, entryPrice)
	if qty <= 0 {
		return
	}

	commission := p.cfg.Base.CalculateCommission(entryPrice * qty)
	p.cash -= entryPrice*qty + commission
	p.positions[s.name] = NewPosition(s.name, side, c.Time, entryPrice, qty, commission, sig)
}

func (p *portfolio) close(s *symbolState, c market.Candle, sig strategy.Signal) {
	pos := p.positions[s.name]
	exitPrice := p.cfg.Base.ApplyExitSlippage(c.Close, pos.IsLong())
	exitCommission := p.cfg.Base.CalculateCommission(exitPrice * pos.Quantity())

	p.cash += pos.Value(exitPrice) - exitCommission
	p.trades[s.name] = append(p.trades[s.name], pos.Close(c.Time, exitPrice, exitCommission, sig))
	delete(p.positions, s.name)
}

// closeAll force-closes every surviving position at its symbol's final
// close, then refreshes the last equity sample to reflect the exits.
func (p *portfolio) closeAll() {
	for _, s := range p.states {
		if p.positions[s.name] == nil || len(s.candles) == 0 {
			continue
		}
		c := s.candles[len(s.candles)-1]
		p.close(s, c, strategy.NewSignal(strategy.Exit, c.Time, c.Close, "end_of_data"))
	}
	if n := len(p.curve); n > 0 {
		p.curve[n-1].Equity = p.equity()
	}
}

func (p *portfolio) allTrades() []Trade {
	var all []Trade
	for _, s := range p.states {
		all = append(all, p.trades[s.name]...)
	}
	return all
}

func unionTimestamps(states []*symbolState) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, s := range states {
		for _, c := range s.candles {
			if _, ok := seen[c.Time]; !ok {
				seen[c.Time] = struct{}{}
				out = append(out, c.Time)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
