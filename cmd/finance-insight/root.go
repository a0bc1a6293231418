// ABOUTME: Root cobra command and shared application wiring for the CLI
// ABOUTME: Every subcommand builds its collaborators through newApp
package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"finance-insight/adapter"
	"finance-insight/aggregate"
	"finance-insight/batch"
	"finance-insight/config"
	"finance-insight/domain"
	"finance-insight/logger"
	"finance-insight/pipeline"
	"finance-insight/ratelimit"
	"finance-insight/retry"
	"finance-insight/store"
)

var rootCmd = &cobra.Command{
	Use:   "finance-insight",
	Short: "Batch pipeline and summary dashboard for finance video channels",
	Long: `finance-insight downloads finance videos, transcribes them, extracts
structured market data with an LLM and aggregates the results into
date-windowed summary reports.

Example usage:
  finance-insight process https://www.youtube.com/watch?v=abc123
  finance-insight batch --channel https://www.youtube.com/@somechannel --limit 5
  finance-insight aggregate --stock-days 7
  finance-insight serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// app bundles the wired collaborators shared by the subcommands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	artifacts  *store.ArtifactStore
	downloader *adapter.YTDLPClient
	orch       *pipeline.Orchestrator
	controller *batch.Controller
	engine     *aggregate.Engine
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.Init()

	artifacts, err := store.New(cfg.Store.Root, cfg.Store.CacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	limiter, err := ratelimit.NewExtractLimiter(cfg.RateLimit, log)
	if err != nil {
		return nil, fmt.Errorf("build rate limiter: %w", err)
	}

	downloader := adapter.NewYTDLPClient(cfg.Downloader, log)
	transcriber := adapter.NewWhisperClient(cfg.Transcriber, log)
	extractor := adapter.NewLLMExtractor(cfg.Extractor, log)

	orch := pipeline.NewOrchestrator(downloader, transcriber, extractor, artifacts, limiter, log)
	controller := batch.NewController(orch, retry.NewBackoff(cfg.Retry), artifacts, cfg.Batch, log)
	engine := aggregate.NewEngine(artifacts, cfg.Aggregate, log)

	return &app{
		cfg:        cfg,
		logger:     log,
		artifacts:  artifacts,
		downloader: downloader,
		orch:       orch,
		controller: controller,
		engine:     engine,
	}, nil
}

// mediaOptions derives the per-video media options from configuration.
func (a *app) mediaOptions() domain.MediaOptions {
	return domain.MediaOptions{
		AudioFormat: a.cfg.Downloader.AudioFormat,
		VideoFormat: a.cfg.Downloader.VideoFormat,
		ModelSize:   a.cfg.Transcriber.ModelSize,
		Language:    a.cfg.Transcriber.Language,
	}
}
