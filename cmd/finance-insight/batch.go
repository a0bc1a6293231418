// ABOUTME: The batch subcommand lists a channel's newest videos and fans them through the pipeline
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"finance-insight/batch"
	"finance-insight/domain"
)

var (
	batchChannel string
	batchLimit   int
	batchDate    string
	batchForce   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process the newest videos of a channel as one batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchChannel == "" {
			return errors.New("--channel is required")
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.downloader.CheckBinary(); err != nil {
			return err
		}

		date := batchDate
		if date == "" {
			date = domain.Today()
		} else if _, err := domain.ParseDay(date); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}

		listCtx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Batch.ListTimeout)
		defer cancel()
		refs, err := a.downloader.ListVideos(listCtx, batchChannel, batchLimit)
		if err != nil {
			return fmt.Errorf("list channel videos: %w", err)
		}
		if len(refs) == 0 {
			return errors.New("channel listing returned no videos")
		}

		tasks := batch.TasksFromRefs(refs, date, a.mediaOptions(), batchForce)
		summary, err := a.controller.RunBatch(cmd.Context(), tasks)
		if err != nil {
			return err
		}

		fmt.Printf("batch %s: %d total, %d succeeded, %d partial, %d failed\n",
			summary.RunID, summary.Total, summary.Succeeded, summary.Partial, summary.Failed)
		if summary.LedgerPath != "" {
			fmt.Printf("ledger: %s\n", summary.LedgerPath)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchChannel, "channel", "", "channel URL to process")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 5, "number of newest videos to process")
	batchCmd.Flags().StringVar(&batchDate, "date", "", "date partition (YYYY-MM-DD, default today)")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "re-run every stage even if artifacts exist")
	rootCmd.AddCommand(batchCmd)
}
