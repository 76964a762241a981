// Package config loads and validates run configuration files for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/strategy"
	"gopkg.in/yaml.v3"
)

// Config is the complete file-level configuration for a run.
type Config struct {
	Strategy  string            `json:"strategy" yaml:"strategy"`
	Backtest  backtest.Config   `json:"backtest" yaml:"backtest"`
	Portfolio PortfolioSettings `json:"portfolio" yaml:"portfolio"`
	Data      DataConfig        `json:"data" yaml:"data"`
	Journal   JournalConfig     `json:"journal" yaml:"journal"`
	LogLevel  string            `json:"log_level" yaml:"log_level"`
}

// PortfolioSettings holds the multi-symbol constraints; combined with the
// backtest section via PortfolioConfig().
type PortfolioSettings struct {
	MaxAllocationPerSymbol float64            `json:"max_allocation_per_symbol" yaml:"max_allocation_per_symbol"`
	MaxTotalPositions      int                `json:"max_total_positions" yaml:"max_total_positions"`
	RebalanceMode          string             `json:"rebalance_mode" yaml:"rebalance_mode"`
	Weights                map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// DataConfig maps symbols to candle CSV files.
type DataConfig struct {
	Candles map[string]string `json:"candles" yaml:"candles"`
}

// JournalConfig selects where run records go.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// PortfolioConfig assembles the engine-level portfolio config from the
// backtest and portfolio sections.
func (c *Config) PortfolioConfig() backtest.PortfolioConfig {
	return backtest.PortfolioConfig{
		Base:                   c.Backtest,
		MaxAllocationPerSymbol: c.Portfolio.MaxAllocationPerSymbol,
		MaxTotalPositions:      c.Portfolio.MaxTotalPositions,
		Mode:                   backtest.RebalanceMode(c.Portfolio.RebalanceMode),
		Weights:                c.Portfolio.Weights,
	}
}

// LoadFromFile loads a configuration file, trying YAML first then JSON, and
// validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, as YAML for .yaml/.yml paths and JSON
// otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the whole file: the backtest section, the portfolio
// constraints against the symbol set, and the journal selection.
func (c *Config) Validate() error {
	if c.Strategy == "" {
		return fmt.Errorf("strategy is required")
	}
	if _, ok := strategy.GetPreset(c.Strategy); !ok {
		return fmt.Errorf("unknown strategy preset: %s", c.Strategy)
	}
	if err := c.Backtest.Validate(); err != nil {
		return err
	}
	if len(c.Data.Candles) > 0 {
		pc := c.PortfolioConfig()
		if err := pc.Validate(len(c.Data.Candles)); err != nil {
			return err
		}
	}
	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal dir required for csv type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	cfg, _ := backtest.NewConfig().
		CommissionPct(0.001).
		SlippagePct(0.0005).
		PositionSizePct(0.95).
		Build()

	return &Config{
		Strategy: "sma-cross",
		Backtest: cfg,
		Portfolio: PortfolioSettings{
			RebalanceMode: string(backtest.RebalanceAvailableCapital),
		},
		Data: DataConfig{
			Candles: map[string]string{"SPY": "./data/spy.csv"},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./backtests.sqlite",
		},
		LogLevel: "info",
	}
}
