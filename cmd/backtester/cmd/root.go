package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "A strategy backtest engine for OHLCV candle data",
	Long: `Backtester replays historical candle data through composable trading
strategies and reports realistic trade economics.

It provides tools for:
  - Backtesting single symbols with commission, slippage and stop/take rules
  - Portfolio backtests sharing one capital pool across symbols
  - Ready-made strategy presets built on the condition DSL
  - Journaling trades and equity curves to SQLite or CSV`,
}

var logLevel string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
