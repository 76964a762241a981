package cmd

import (
	"fmt"

	"github.com/rustyeddy/backtester/strategy"
	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available strategy presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range strategy.ListPresets() {
			strat, err := p.Factory()
			if err != nil {
				return err
			}
			fmt.Printf("%-16s warmup=%-4d %s\n", p.Name, strat.WarmupPeriod(), p.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
