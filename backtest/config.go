// Package backtest implements the candle-walk simulation engines: trade
// economics (commission, slippage, sizing), position/trade accounting, a
// single-symbol engine, a multi-symbol portfolio engine with shared capital,
// and a metrics summarizer.
package backtest

import "fmt"

// RiskBasis selects which candle price the stop-loss/take-profit check uses.
type RiskBasis string

const (
	// RiskBasisClose checks the unrealized return against the bar close.
	// Deterministic and the default.
	RiskBasisClose RiskBasis = "close"

	// RiskBasisIntrabar consults the bar's adverse extreme for stops and
	// favorable extreme for targets (low/high for longs, high/low for shorts).
	RiskBasisIntrabar RiskBasis = "intrabar"
)

// Config holds the economics and limits of one simulation. Build one with
// NewConfig; a Config is immutable once validated.
type Config struct {
	InitialCapital    float64   `yaml:"initial_capital" json:"initial_capital"`
	Commission        float64   `yaml:"commission" json:"commission"`
	CommissionPct     float64   `yaml:"commission_pct" json:"commission_pct"`
	SlippagePct       float64   `yaml:"slippage_pct" json:"slippage_pct"`
	PositionSizePct   float64   `yaml:"position_size_pct" json:"position_size_pct"`
	MaxPositions      int       `yaml:"max_positions" json:"max_positions"` // 0 = no limit
	AllowShort        bool      `yaml:"allow_short" json:"allow_short"`
	MinSignalStrength float64   `yaml:"min_signal_strength" json:"min_signal_strength"`
	StopLossPct       float64   `yaml:"stop_loss_pct" json:"stop_loss_pct"`     // 0 disables
	TakeProfitPct     float64   `yaml:"take_profit_pct" json:"take_profit_pct"` // 0 disables
	CloseAtEnd        bool      `yaml:"close_at_end" json:"close_at_end"`
	RiskBasis         RiskBasis `yaml:"risk_basis" json:"risk_basis"`
}

// ConfigBuilder assembles a Config. Every setter returns the builder for
// chaining; Build validates once and fails fast on the first bad field.
type ConfigBuilder struct {
	cfg Config
}

// NewConfig starts a builder with defaults: 10k capital, no costs, full
// position sizing, long-only, close open positions at the end.
func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: Config{
		InitialCapital:  10_000,
		PositionSizePct: 1.0,
		CloseAtEnd:      true,
		RiskBasis:       RiskBasisClose,
	}}
}

func (b *ConfigBuilder) InitialCapital(v float64) *ConfigBuilder { b.cfg.InitialCapital = v; return b }

func (b *ConfigBuilder) Commission(flat float64) *ConfigBuilder { b.cfg.Commission = flat; return b }

func (b *ConfigBuilder) CommissionPct(v float64) *ConfigBuilder { b.cfg.CommissionPct = v; return b }

func (b *ConfigBuilder) SlippagePct(v float64) *ConfigBuilder { b.cfg.SlippagePct = v; return b }

func (b *ConfigBuilder) PositionSizePct(v float64) *ConfigBuilder {
	b.cfg.PositionSizePct = v
	return b
}

func (b *ConfigBuilder) MaxPositions(n int) *ConfigBuilder { b.cfg.MaxPositions = n; return b }

func (b *ConfigBuilder) AllowShort(v bool) *ConfigBuilder { b.cfg.AllowShort = v; return b }

func (b *ConfigBuilder) MinSignalStrength(v float64) *ConfigBuilder {
	b.cfg.MinSignalStrength = v
	return b
}

func (b *ConfigBuilder) StopLoss(pct float64) *ConfigBuilder { b.cfg.StopLossPct = pct; return b }

func (b *ConfigBuilder) TakeProfit(pct float64) *ConfigBuilder { b.cfg.TakeProfitPct = pct; return b }

func (b *ConfigBuilder) CloseAtEnd(v bool) *ConfigBuilder { b.cfg.CloseAtEnd = v; return b }

func (b *ConfigBuilder) RiskBasis(basis RiskBasis) *ConfigBuilder { b.cfg.RiskBasis = basis; return b }

func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.cfg.Validate(); err != nil {
		return Config{}, err
	}
	return b.cfg, nil
}

// Validate checks every field against its documented range.
func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("backtest: initial_capital must be positive, got %.4f", c.InitialCapital)
	}
	if c.Commission < 0 {
		return fmt.Errorf("backtest: commission must be non-negative, got %.4f", c.Commission)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"commission_pct", c.CommissionPct},
		{"slippage_pct", c.SlippagePct},
		{"position_size_pct", c.PositionSizePct},
		{"min_signal_strength", c.MinSignalStrength},
		{"stop_loss_pct", c.StopLossPct},
		{"take_profit_pct", c.TakeProfitPct},
	} {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("backtest: %s must be in [0,1], got %.4f", f.name, f.v)
		}
	}
	if c.MaxPositions < 0 {
		return fmt.Errorf("backtest: max_positions must be non-negative, got %d", c.MaxPositions)
	}
	switch c.RiskBasis {
	case "", RiskBasisClose, RiskBasisIntrabar:
	default:
		return fmt.Errorf("backtest: risk_basis must be %q or %q, got %q",
			RiskBasisClose, RiskBasisIntrabar, c.RiskBasis)
	}
	return nil
}

// ApplyEntrySlippage degrades the fill price against the entering side:
// longs pay up, shorts receive less.
func (c Config) ApplyEntrySlippage(price float64, long bool) float64 {
	if long {
		return price * (1 + c.SlippagePct)
	}
	return price * (1 - c.SlippagePct)
}

// ApplyExitSlippage degrades the fill price against the exiting side.
func (c Config) ApplyExitSlippage(price float64, long bool) float64 {
	if long {
		return price * (1 - c.SlippagePct)
	}
	return price * (1 + c.SlippagePct)
}

// CalculateCommission returns flat + value*pct for one fill.
func (c Config) CalculateCommission(value float64) float64 {
	if value < 0 {
		value = 0
	}
	return c.Commission + value*c.CommissionPct
}

// CalculatePositionSize returns the quantity affordable with the configured
// fraction of available cash, leaving room for the entry commission so that
// qty*price*(1+commission_pct) never exceeds cash*position_size_pct.
// Degenerate inputs yield 0 rather than an error.
func (c Config) CalculatePositionSize(availableCash, price float64) float64 {
	return c.sizeFromCapital(availableCash*c.PositionSizePct, price)
}

// sizeFromCapital converts a capital target into a quantity at price, net of
// commissions. Shared with the portfolio allocator, which supplies its own
// target instead of available_cash*position_size_pct.
func (c Config) sizeFromCapital(target, price float64) float64 {
	if price <= 0 {
		return 0
	}
	target -= c.Commission
	if target <= 0 {
		return 0
	}
	return target / (price * (1 + c.CommissionPct))
}
