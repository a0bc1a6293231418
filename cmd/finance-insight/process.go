// ABOUTME: The process subcommand runs the full pipeline for one video URL
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"finance-insight/adapter"
	"finance-insight/domain"
)

var (
	processDate  string
	processForce bool
)

var processCmd = &cobra.Command{
	Use:   "process <video-url>",
	Short: "Download, transcribe and analyze one video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.downloader.CheckBinary(); err != nil {
			return err
		}

		url := args[0]
		videoID := adapter.ExtractVideoID(url)
		if videoID == "" {
			return fmt.Errorf("could not extract a video id from %q", url)
		}
		date := processDate
		if date == "" {
			date = domain.Today()
		} else if _, err := domain.ParseDay(date); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}

		task := domain.VideoTask{
			VideoID:        videoID,
			SourceURL:      url,
			TargetName:     videoID,
			Date:           date,
			Options:        a.mediaOptions(),
			ForceReprocess: processForce,
		}

		outcome, err := a.orch.Run(cmd.Context(), task)
		if err != nil && !errors.Is(err, domain.ErrRateLimited) {
			return err
		}
		fmt.Printf("video %s finished with status %s\n", outcome.VideoID, outcome.Status)
		if outcome.Error != "" {
			return errors.New(outcome.Error)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processDate, "date", "", "date partition (YYYY-MM-DD, default today)")
	processCmd.Flags().BoolVar(&processForce, "force", false, "re-run every stage even if artifacts exist")
	rootCmd.AddCommand(processCmd)
}
