// ABOUTME: This file implements the batch controller: bounded fan-out of video tasks over the pipeline.
// ABOUTME: One task's failure never aborts the batch; rate-limited tasks are retried with backoff.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"finance-insight/config"
	"finance-insight/domain"
	"finance-insight/retry"
	"finance-insight/store"
)

// Runner executes one video task through the pipeline. The error return
// carries only the distinguished rate-limit signal.
type Runner interface {
	Run(ctx context.Context, task domain.VideoTask) (domain.PipelineOutcome, error)
}

// RunSummary is the persisted ledger of one batch run. Outcomes appear in
// the same order as the input tasks, exactly one per task.
type RunSummary struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Total      int                      `json:"total"`
	Succeeded  int                      `json:"succeeded"`
	Partial    int                      `json:"partial"`
	Failed     int                      `json:"failed"`
	Outcomes   []domain.PipelineOutcome `json:"outcomes"`
	LedgerPath string                   `json:"-"`
}

// Controller fans a batch of tasks out over a bounded worker pool.
type Controller struct {
	runner    Runner
	backoff   *retry.Backoff
	artifacts *store.ArtifactStore
	cfg       config.BatchConfig
	logger    *slog.Logger
}

func NewController(runner Runner, backoff *retry.Backoff, artifacts *store.ArtifactStore, cfg config.BatchConfig, logger *slog.Logger) *Controller {
	return &Controller{
		runner:    runner,
		backoff:   backoff,
		artifacts: artifacts,
		cfg:       cfg,
		logger:    logger,
	}
}

// TasksFromRefs turns a channel listing into pipeline tasks sharing one
// date partition and one set of media options.
func TasksFromRefs(refs []domain.VideoRef, date string, opts domain.MediaOptions, force bool) []domain.VideoTask {
	tasks := make([]domain.VideoTask, 0, len(refs))
	for _, ref := range refs {
		tasks = append(tasks, domain.VideoTask{
			VideoID:        ref.VideoID,
			SourceURL:      ref.URL,
			TargetName:     ref.VideoID,
			Date:           date,
			Options:        opts,
			ForceReprocess: force,
		})
	}
	return tasks
}

// RunBatch processes every task and returns the run ledger. Individual
// task failures are recorded in their outcomes; RunBatch itself fails only
// on context cancellation or an empty task list.
func (c *Controller) RunBatch(ctx context.Context, tasks []domain.VideoTask) (*RunSummary, error) {
	if len(tasks) == 0 {
		return nil, errors.New("no tasks to process")
	}

	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Total:     len(tasks),
	}
	c.logger.Info("batch started",
		slog.String("run_id", summary.RunID),
		slog.Int("tasks", len(tasks)),
		slog.Int("concurrency", c.cfg.Concurrency))

	r := &run{
		ctrl:     c,
		outcomes: make([]domain.PipelineOutcome, len(tasks)),
		queue:    make(chan queuedTask, len(tasks)),
	}
	r.pending.Add(len(tasks))
	for i, task := range tasks {
		r.queue <- queuedTask{index: i, task: task}
	}
	go func() {
		r.pending.Wait()
		close(r.queue)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < max(1, c.cfg.Concurrency); i++ {
		g.Go(func() error {
			r.worker(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}

	summary.Outcomes = r.outcomes
	summary.FinishedAt = time.Now()
	for _, o := range summary.Outcomes {
		switch o.Status {
		case domain.StatusSuccess:
			summary.Succeeded++
		case domain.StatusPartial:
			summary.Partial++
		default:
			summary.Failed++
		}
	}

	key := fmt.Sprintf("batch_results_%s.json", summary.FinishedAt.Format("20060102_150405"))
	path, err := c.persistLedger(key, summary)
	if err != nil {
		c.logger.Warn("could not persist batch ledger", slog.String("error", err.Error()))
	} else {
		summary.LedgerPath = path
	}

	c.logger.Info("batch finished",
		slog.String("run_id", summary.RunID),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("partial", summary.Partial),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

// persistLedger writes the run summary, either into the configured ledger
// directory or into today's reports partition of the artifact store.
func (c *Controller) persistLedger(key string, summary *RunSummary) (string, error) {
	if c.cfg.LedgerDir == "" {
		return c.artifacts.WriteJSON(domain.Today(), store.CategoryReports, key, summary)
	}
	if err := os.MkdirAll(c.cfg.LedgerDir, 0o755); err != nil {
		return "", fmt.Errorf("create ledger dir: %w", err)
	}
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal ledger: %w", err)
	}
	path := filepath.Join(c.cfg.LedgerDir, key)
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write ledger %s: %w", path, err)
	}
	return path, nil
}

// queuedTask is one queue entry. attempt counts how often the task was
// re-enqueued after a rate-limit signal.
type queuedTask struct {
	index   int
	attempt int
	task    domain.VideoTask
}

// run holds the shared state of one batch execution. Each task owns exactly
// one queue entry at a time, so the queue buffer never fills beyond the
// initial task count and sends cannot block.
type run struct {
	ctrl     *Controller
	outcomes []domain.PipelineOutcome
	queue    chan queuedTask
	pending  sync.WaitGroup
}

// worker drains the queue until every task reached a terminal outcome.
func (r *run) worker(ctx context.Context) {
	for item := range r.queue {
		outcome, err := r.ctrl.runner.Run(ctx, item.task)
		if err != nil && errors.Is(err, domain.ErrRateLimited) {
			if item.attempt < r.ctrl.cfg.MaxRateLimitRetries {
				r.requeue(ctx, item)
				continue
			}
			outcome.Status = domain.StatusFailed
			outcome.Error = domain.ErrRateLimitExhausted.Error()
			outcome.CompletedAt = time.Now()
			r.ctrl.logger.Error("rate limit retries exhausted",
				slog.String("video_id", item.task.VideoID),
				slog.Int("attempts", item.attempt+1))
		}
		r.finish(item.index, outcome)
	}
}

// requeue returns a rate-limited task to the queue tail once its backoff
// delay has passed. The sleeper runs detached so the worker slot frees up
// immediately for pending tasks.
func (r *run) requeue(ctx context.Context, item queuedTask) {
	item.attempt++
	r.ctrl.logger.Warn("extractor rate limited, re-enqueueing task",
		slog.String("video_id", item.task.VideoID),
		slog.Int("attempt", item.attempt),
		slog.Duration("delay", r.ctrl.backoff.Delay(item.attempt)))
	go func() {
		if err := r.ctrl.backoff.Sleep(ctx, item.attempt); err != nil {
			r.finish(item.index, domain.PipelineOutcome{
				VideoID:     item.task.VideoID,
				Status:      domain.StatusFailed,
				Error:       err.Error(),
				CompletedAt: time.Now(),
			})
			return
		}
		r.queue <- item
	}()
}

func (r *run) finish(index int, outcome domain.PipelineOutcome) {
	r.outcomes[index] = outcome
	r.pending.Done()
}
