package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single-symbol backtest over a candle CSV",
	Long: `Run replays one candle CSV through a strategy preset.

Example:
  backtester run --candles data/spy.csv --strategy sma-cross --balance 25000`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runCandlesPath string
	runSymbol      string
	runStrategy    string
	runBalance     float64
	runCommission  float64
	runCommPct     float64
	runSlipPct     float64
	runSizePct     float64
	runStopLoss    float64
	runTakeProfit  float64
	runAllowShort  bool
	runCloseEnd    bool
	runDBPath      string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "config file (overrides the other flags)")
	runCmd.Flags().StringVarP(&runCandlesPath, "candles", "d", "", "path to candle CSV (time,open,high,low,close,volume)")
	runCmd.Flags().StringVar(&runSymbol, "symbol", "", "symbol name (defaults to the CSV file name)")
	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "sma-cross", "strategy preset name")
	runCmd.Flags().Float64VarP(&runBalance, "balance", "b", 10_000, "initial capital")
	runCmd.Flags().Float64Var(&runCommission, "commission", 0, "flat commission per fill")
	runCmd.Flags().Float64Var(&runCommPct, "commission-pct", 0, "commission as a fraction of fill value")
	runCmd.Flags().Float64Var(&runSlipPct, "slippage-pct", 0, "slippage as a fraction of price")
	runCmd.Flags().Float64Var(&runSizePct, "size-pct", 1.0, "fraction of cash committed per entry")
	runCmd.Flags().Float64Var(&runStopLoss, "stop-loss", 0, "stop-loss fraction, 0 disables")
	runCmd.Flags().Float64Var(&runTakeProfit, "take-profit", 0, "take-profit fraction, 0 disables")
	runCmd.Flags().BoolVar(&runAllowShort, "allow-short", false, "allow short entries")
	runCmd.Flags().BoolVar(&runCloseEnd, "close-end", true, "close any open position at the last candle")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "SQLite journal path, empty disables journaling")
}

func runRun(cmd *cobra.Command, args []string) error {
	log := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		cfg     backtest.Config
		preset  string
		candles string
		symbol  string
		jcfg    config.JournalConfig
		err     error
	)

	if runConfigPath != "" {
		fileCfg, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return err
		}
		cfg = fileCfg.Backtest
		preset = fileCfg.Strategy
		jcfg = fileCfg.Journal
		for sym, path := range fileCfg.Data.Candles {
			symbol, candles = sym, path
			break
		}
		if len(fileCfg.Data.Candles) > 1 {
			return fmt.Errorf("config has %d symbols; use the portfolio command", len(fileCfg.Data.Candles))
		}
	} else {
		cfg, err = backtest.NewConfig().
			InitialCapital(runBalance).
			Commission(runCommission).
			CommissionPct(runCommPct).
			SlippagePct(runSlipPct).
			PositionSizePct(runSizePct).
			StopLoss(runStopLoss).
			TakeProfit(runTakeProfit).
			AllowShort(runAllowShort).
			CloseAtEnd(runCloseEnd).
			Build()
		if err != nil {
			return err
		}
		preset = runStrategy
		candles = runCandlesPath
		symbol = runSymbol
		if runDBPath != "" {
			jcfg = config.JournalConfig{Type: "sqlite", DBPath: runDBPath}
		}
	}

	if candles == "" {
		return fmt.Errorf("a candle CSV is required (--candles or a config data section)")
	}
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSuffix(filepath.Base(candles), filepath.Ext(candles)))
	}

	strat, err := strategy.NewPresetStrategy(preset)
	if err != nil {
		return err
	}

	series, err := market.LoadCSV(candles)
	if err != nil {
		return err
	}
	log.Info("loaded candles", "symbol", symbol, "file", candles, "bars", len(series))

	res, err := backtest.Run(ctx, symbol, strat, series, cfg)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Warn("run cancelled; results are partial")
	}

	backtest.PrintSummary(os.Stdout, fmt.Sprintf("%s on %s", strat.Name(), symbol), cfg.InitialCapital, res)

	return journalResult(log, jcfg, func(j journal.Journal, runID string) error {
		return journal.RecordResult(j, runID, strat.Name(), symbol, cfg.InitialCapital, res)
	})
}

// journalResult opens the configured journal, mints a run ID and hands both
// to record. A "none" journal type is a silent no-op.
func journalResult(log *slog.Logger, jcfg config.JournalConfig, record func(journal.Journal, string) error) error {
	var j journal.Journal
	var err error

	switch jcfg.Type {
	case "sqlite":
		j, err = journal.NewSQLite(jcfg.DBPath)
	case "csv":
		j, err = journal.NewCSV(jcfg.Dir)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	defer j.Close()

	runID := id.New()
	if err := record(j, runID); err != nil {
		return err
	}
	log.Info("journaled run", "run_id", runID)
	return nil
}
