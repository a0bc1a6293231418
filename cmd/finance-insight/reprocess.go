// ABOUTME: The reprocess subcommand re-runs extraction over stored transcripts
// ABOUTME: Useful after a prompt or model change; audio and transcripts are left untouched
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finance-insight/domain"
	"finance-insight/store"
)

var (
	reprocessDate  string
	reprocessVideo string
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Re-run extraction for transcripts already on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reprocessDate == "" {
			return errors.New("--date is required")
		}
		if _, err := domain.ParseDay(reprocessDate); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		a, err := newApp()
		if err != nil {
			return err
		}

		var videoIDs []string
		if reprocessVideo != "" {
			videoIDs = []string{reprocessVideo}
		} else {
			entries, err := a.artifacts.List(reprocessDate, reprocessDate, store.CategoryTranscription)
			if err != nil {
				return fmt.Errorf("list transcripts: %w", err)
			}
			for _, e := range entries {
				videoIDs = append(videoIDs, strings.TrimSuffix(e.Key, ".txt"))
			}
		}
		if len(videoIDs) == 0 {
			return errors.New("no transcripts found for the given date")
		}

		var succeeded, failed int
		for _, id := range videoIDs {
			outcome, err := a.orch.Reextract(cmd.Context(), reprocessDate, id)
			if err != nil && !errors.Is(err, domain.ErrRateLimited) {
				return err
			}
			if outcome.Status == domain.StatusSuccess {
				succeeded++
			} else {
				failed++
				fmt.Printf("video %s: %s\n", id, outcome.Error)
			}
		}
		fmt.Printf("reprocessed %d transcripts: %d succeeded, %d failed\n",
			len(videoIDs), succeeded, failed)
		return nil
	},
}

func init() {
	reprocessCmd.Flags().StringVar(&reprocessDate, "date", "", "date partition to reprocess (YYYY-MM-DD)")
	reprocessCmd.Flags().StringVar(&reprocessVideo, "video", "", "reprocess a single video id")
	rootCmd.AddCommand(reprocessCmd)
}
