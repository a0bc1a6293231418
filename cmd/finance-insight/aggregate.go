// ABOUTME: The aggregate subcommand generates a summary report for a date window
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finance-insight/domain"
)

var (
	aggMacroDays int
	aggStockDays int
	aggAsOf      string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Merge stored analyses into a summary report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if aggAsOf != "" {
			if _, err := domain.ParseDay(aggAsOf); err != nil {
				return fmt.Errorf("invalid --as-of: %w", err)
			}
		}

		report, err := a.engine.Aggregate(cmd.Context(), aggMacroDays, aggStockDays, aggAsOf)
		if err != nil {
			return err
		}

		fmt.Printf("report %s as of %s: %d macro items, %d symbols (%d buy / %d sell), %d records skipped\n",
			report.ReportID, report.AsOf,
			report.Counts.MacroCount, report.Counts.StockCount,
			report.Counts.BuyCount, report.Counts.SellCount,
			report.Counts.SkippedRecords)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().IntVar(&aggMacroDays, "macro-days", 0, "macro window in days (default from config)")
	aggregateCmd.Flags().IntVar(&aggStockDays, "stock-days", 0, "stock window in days (default from config)")
	aggregateCmd.Flags().StringVar(&aggAsOf, "as-of", "", "window end date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(aggregateCmd)
}
