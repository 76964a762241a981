package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/spf13/cobra"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Run a multi-symbol backtest sharing one capital pool",
	Long: `Portfolio replays several candle CSVs through per-symbol strategy
instances competing for shared capital under position-count and allocation
constraints. The symbol set comes from the config file's data section.

Example:
  backtester portfolio --config portfolio.yaml`,
	RunE: runPortfolio,
}

var portfolioConfigPath string

func init() {
	rootCmd.AddCommand(portfolioCmd)

	portfolioCmd.Flags().StringVarP(&portfolioConfigPath, "config", "c", "", "config file with a multi-symbol data section (required)")
	portfolioCmd.MarkFlagRequired("config")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	log := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fileCfg, err := config.LoadFromFile(portfolioConfigPath)
	if err != nil {
		return err
	}
	if len(fileCfg.Data.Candles) == 0 {
		return fmt.Errorf("config data section names no symbols")
	}

	// One strategy instance per symbol so per-symbol state never crosses.
	strats := make(map[string]*strategy.Strategy, len(fileCfg.Data.Candles))
	candles := make(map[string][]market.Candle, len(fileCfg.Data.Candles))
	for sym, path := range fileCfg.Data.Candles {
		strat, err := strategy.NewPresetStrategy(fileCfg.Strategy)
		if err != nil {
			return err
		}
		series, err := market.LoadCSV(path)
		if err != nil {
			return fmt.Errorf("symbol %s: %w", sym, err)
		}
		strats[sym] = strat
		candles[sym] = series
		log.Info("loaded candles", "symbol", sym, "file", path, "bars", len(series))
	}

	pcfg := fileCfg.PortfolioConfig()
	res, err := backtest.RunPortfolio(ctx, strats, candles, pcfg)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Warn("run cancelled; results are partial")
	}

	backtest.PrintPortfolioSummary(os.Stdout, pcfg.Base.InitialCapital, res)

	symbols := make([]string, 0, len(strats))
	for sym := range strats {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	return journalResult(log, fileCfg.Journal, func(j journal.Journal, runID string) error {
		return journal.RecordPortfolioResult(j, runID, fileCfg.Strategy,
			strings.Join(symbols, ","), pcfg.Base.InitialCapital, res)
	})
}
