// ABOUTME: Tests for the per-video pipeline orchestrator using fake stage adapters
// ABOUTME: Covers stage sequencing, idempotent skips, partial completion and the rate-limit signal
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-insight/adapter"
	"finance-insight/config"
	"finance-insight/domain"
	"finance-insight/logger"
	"finance-insight/ratelimit"
	"finance-insight/store"
)

type fakeDownloader struct {
	calls int
	err   error
	title string
}

func (f *fakeDownloader) Fetch(_ context.Context, task domain.VideoTask, destDir string) (*adapter.DownloadResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(destDir, task.TargetName+".webm")
	if err := os.WriteFile(path, []byte("fake-audio"), 0o644); err != nil {
		return nil, err
	}
	return &adapter.DownloadResult{AudioPath: path, Title: f.title, PublishDate: "2025-01-10"}, nil
}

type fakeTranscriber struct {
	calls int
	err   error
	text  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _, _, _ string) (*adapter.TranscriptionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &adapter.TranscriptionResult{Text: f.text, DetectedLanguage: "en"}, nil
}

type fakeExtractor struct {
	calls  int
	err    error
	record *domain.AnalysisRecord
}

func (f *fakeExtractor) Extract(_ context.Context, _, _ string) (*domain.AnalysisRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.record
	return &rec, nil
}

func newTestOrchestrator(t *testing.T, d adapter.Downloader, tr adapter.Transcriber, ex adapter.Extractor) (*Orchestrator, *store.ArtifactStore) {
	t.Helper()
	log := logger.NewWithLevel(io.Discard, "pipeline-test", "error")
	artifacts, err := store.New(t.TempDir(), 16, log)
	require.NoError(t, err)
	limiter, err := ratelimit.NewExtractLimiter(config.RateLimitConfig{ExtractInterval: 0, Burst: 1}, log)
	require.NoError(t, err)
	return NewOrchestrator(d, tr, ex, artifacts, limiter, log), artifacts
}

func sampleRecord() *domain.AnalysisRecord {
	return &domain.AnalysisRecord{
		Summary: "Markets rallied on soft inflation data.",
		MacroItems: []domain.MacroItem{
			{Indicator: "CPI", Value: "2.9%", Date: "2025-01-10"},
		},
		StockItems: []domain.StockItem{
			{Symbol: "NVDA", Action: domain.ActionBuy, Outlook: "strong demand", AsOfDate: "2025-01-10"},
		},
	}
}

func sampleTask() domain.VideoTask {
	return domain.VideoTask{
		VideoID:    "abc123xyz01",
		SourceURL:  "https://www.youtube.com/watch?v=abc123xyz01",
		TargetName: "abc123xyz01",
		Date:       "2025-01-10",
		Options:    domain.MediaOptions{AudioFormat: "webm", ModelSize: "base", Language: "auto"},
	}
}

func TestOrchestratorRun(t *testing.T) {
	t.Run("should run all stages and persist every artifact", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{text: "the fed held rates steady"}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, artifacts := newTestOrchestrator(t, d, tr, ex)

		outcome, err := orch.Run(context.Background(), sampleTask())

		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, outcome.Status)
		assert.Equal(t, domain.StageOK, outcome.Stages.Download.State)
		assert.Equal(t, domain.StageOK, outcome.Stages.Transcribe.State)
		assert.Equal(t, domain.StageOK, outcome.Stages.Extract.State)

		text, err := artifacts.Read("2025-01-10", store.CategoryTranscription, "abc123xyz01.txt")
		require.NoError(t, err)
		assert.Equal(t, "the fed held rates steady", string(text))

		rec, err := artifacts.ReadAnalysis("2025-01-10", "abc123xyz01_analysis.json")
		require.NoError(t, err)
		assert.Equal(t, "abc123xyz01", rec.VideoID)
		assert.Equal(t, "Market Update", rec.Title)
		assert.Equal(t, "2025-01-10", rec.Date)
		require.Len(t, rec.StockItems, 1)
		assert.Equal(t, "NVDA", rec.StockItems[0].Symbol)
	})

	t.Run("should make zero adapter calls when re-running a completed task", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{text: "transcript"}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, _ := newTestOrchestrator(t, d, tr, ex)

		first, err := orch.Run(context.Background(), sampleTask())
		require.NoError(t, err)
		require.Equal(t, domain.StatusSuccess, first.Status)

		second, err := orch.Run(context.Background(), sampleTask())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusSuccess, second.Status)
		assert.Equal(t, domain.StageSkipped, second.Stages.Download.State)
		assert.Equal(t, domain.StageSkipped, second.Stages.Transcribe.State)
		assert.Equal(t, domain.StageSkipped, second.Stages.Extract.State)
		assert.Equal(t, 1, d.calls)
		assert.Equal(t, 1, tr.calls)
		assert.Equal(t, 1, ex.calls)
	})

	t.Run("should re-run every stage when force reprocess is set", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{text: "transcript"}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, _ := newTestOrchestrator(t, d, tr, ex)

		_, err := orch.Run(context.Background(), sampleTask())
		require.NoError(t, err)

		task := sampleTask()
		task.ForceReprocess = true
		outcome, err := orch.Run(context.Background(), task)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusSuccess, outcome.Status)
		assert.Equal(t, 2, d.calls)
		assert.Equal(t, 2, tr.calls)
		assert.Equal(t, 2, ex.calls)
	})

	t.Run("should mark task failed when download fails", func(t *testing.T) {
		d := &fakeDownloader{err: errors.New("yt-dlp exited with status 1")}
		tr := &fakeTranscriber{text: "transcript"}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, _ := newTestOrchestrator(t, d, tr, ex)

		outcome, err := orch.Run(context.Background(), sampleTask())

		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, outcome.Status)
		assert.Equal(t, domain.StageFailed, outcome.Stages.Download.State)
		assert.Contains(t, outcome.Error, "download")
		assert.Zero(t, tr.calls)
		assert.Zero(t, ex.calls)
	})

	t.Run("should mark task failed when transcription fails", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{err: domain.ErrEmptyTranscript}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, _ := newTestOrchestrator(t, d, tr, ex)

		outcome, err := orch.Run(context.Background(), sampleTask())

		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, outcome.Status)
		assert.Equal(t, domain.StageFailed, outcome.Stages.Transcribe.State)
		assert.Zero(t, ex.calls)
	})

	t.Run("should mark task partial when extraction fails", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{text: "transcript"}
		ex := &fakeExtractor{err: domain.ErrInvalidExtraction}
		orch, artifacts := newTestOrchestrator(t, d, tr, ex)

		outcome, err := orch.Run(context.Background(), sampleTask())

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPartial, outcome.Status)
		assert.Equal(t, domain.StageOK, outcome.Stages.Download.State)
		assert.Equal(t, domain.StageOK, outcome.Stages.Transcribe.State)
		assert.Equal(t, domain.StageFailed, outcome.Stages.Extract.State)
		assert.True(t, artifacts.Exists("2025-01-10", store.CategoryTranscription, "abc123xyz01.txt"))
		assert.False(t, artifacts.Exists("2025-01-10", store.CategoryAnalysis, "abc123xyz01_analysis.json"))
	})

	t.Run("should retry extraction on the next run after a partial completion", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{text: "transcript"}
		ex := &fakeExtractor{err: domain.ErrInvalidExtraction}
		orch, _ := newTestOrchestrator(t, d, tr, ex)

		_, err := orch.Run(context.Background(), sampleTask())
		require.NoError(t, err)

		ex.err = nil
		ex.record = sampleRecord()
		outcome, err := orch.Run(context.Background(), sampleTask())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusSuccess, outcome.Status)
		assert.Equal(t, domain.StageSkipped, outcome.Stages.Download.State)
		assert.Equal(t, domain.StageSkipped, outcome.Stages.Transcribe.State)
		assert.Equal(t, domain.StageOK, outcome.Stages.Extract.State)
		assert.Equal(t, 1, d.calls)
		assert.Equal(t, 1, tr.calls)
		assert.Equal(t, 2, ex.calls)
	})

	t.Run("should surface the rate limit signal to the caller", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{text: "transcript"}
		ex := &fakeExtractor{err: fmt.Errorf("extraction service busy: %w", domain.ErrRateLimited)}
		orch, _ := newTestOrchestrator(t, d, tr, ex)

		outcome, err := orch.Run(context.Background(), sampleTask())

		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrRateLimited))
		assert.Equal(t, domain.StatusFailed, outcome.Status)
		assert.Equal(t, domain.StageFailed, outcome.Stages.Extract.State)
	})

	t.Run("should reuse an existing transcript without touching the downloader", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{text: "transcript"}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, artifacts := newTestOrchestrator(t, d, tr, ex)

		_, err := artifacts.Write("2025-01-10", store.CategoryTranscription, "abc123xyz01.txt", []byte("stored transcript"))
		require.NoError(t, err)

		outcome, err := orch.Run(context.Background(), sampleTask())

		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, outcome.Status)
		assert.Equal(t, domain.StageSkipped, outcome.Stages.Download.State)
		assert.Equal(t, domain.StageSkipped, outcome.Stages.Transcribe.State)
		assert.Zero(t, d.calls)
		assert.Zero(t, tr.calls)
		assert.Equal(t, 1, ex.calls)
	})

	t.Run("should overwrite an existing analysis on reextract", func(t *testing.T) {
		d := &fakeDownloader{title: "Market Update"}
		tr := &fakeTranscriber{text: "transcript"}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, artifacts := newTestOrchestrator(t, d, tr, ex)

		_, err := orch.Run(context.Background(), sampleTask())
		require.NoError(t, err)

		updated := sampleRecord()
		updated.StockItems[0].Action = domain.ActionSell
		ex.record = updated
		outcome, err := orch.Reextract(context.Background(), "2025-01-10", "abc123xyz01")
		require.NoError(t, err)

		assert.Equal(t, domain.StatusSuccess, outcome.Status)
		assert.Equal(t, domain.StageSkipped, outcome.Stages.Download.State)
		assert.Equal(t, 2, ex.calls)

		rec, err := artifacts.ReadAnalysis("2025-01-10", "abc123xyz01_analysis.json")
		require.NoError(t, err)
		assert.Equal(t, domain.ActionSell, rec.StockItems[0].Action)
	})

	t.Run("should fail reextract when no transcript is stored", func(t *testing.T) {
		d := &fakeDownloader{}
		tr := &fakeTranscriber{}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, _ := newTestOrchestrator(t, d, tr, ex)

		outcome, err := orch.Reextract(context.Background(), "2025-01-10", "missing01")

		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, outcome.Status)
		assert.Zero(t, ex.calls)
	})

	t.Run("should reject a task missing its identifiers", func(t *testing.T) {
		d := &fakeDownloader{}
		tr := &fakeTranscriber{}
		ex := &fakeExtractor{record: sampleRecord()}
		orch, _ := newTestOrchestrator(t, d, tr, ex)

		outcome, err := orch.Run(context.Background(), domain.VideoTask{})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, outcome.Status)
		assert.Zero(t, d.calls)
	})
}
