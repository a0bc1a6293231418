// ABOUTME: The serve subcommand runs the read-only summary dashboard API
package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"finance-insight/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the summary dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(a.engine, a.artifacts, a.cfg.Server, a.logger)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
