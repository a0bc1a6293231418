// ABOUTME: This file runs the per-video processing pipeline: download, transcribe, extract, persist.
// ABOUTME: Each stage persists its artifact immediately and already-present artifacts are skipped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finance-insight/adapter"
	"finance-insight/domain"
	"finance-insight/ratelimit"
	"finance-insight/store"
)

// audio extensions probed when deciding whether a download can be skipped.
var knownAudioExts = []string{"webm", "m4a", "mp3", "opus", "wav"}

// Orchestrator drives one video through the full pipeline. It performs no
// retries of its own; transient failures surface to the caller.
type Orchestrator struct {
	downloader  adapter.Downloader
	transcriber adapter.Transcriber
	extractor   adapter.Extractor
	artifacts   *store.ArtifactStore
	limiter     *ratelimit.ExtractLimiter
	logger      *slog.Logger
}

func NewOrchestrator(
	downloader adapter.Downloader,
	transcriber adapter.Transcriber,
	extractor adapter.Extractor,
	artifacts *store.ArtifactStore,
	limiter *ratelimit.ExtractLimiter,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		downloader:  downloader,
		transcriber: transcriber,
		extractor:   extractor,
		artifacts:   artifacts,
		limiter:     limiter,
		logger:      logger,
	}
}

// Run processes a single task through download, transcription and extraction.
// The returned error is non-nil only when the extractor reported a rate
// limit; callers may re-enqueue the task in that case. Every other failure
// is encoded in the outcome itself.
func (o *Orchestrator) Run(ctx context.Context, task domain.VideoTask) (domain.PipelineOutcome, error) {
	outcome := domain.PipelineOutcome{
		VideoID:       task.VideoID,
		ArtifactPaths: make(map[string]string),
	}

	switch {
	case task.VideoID == "":
		outcome.Status = domain.StatusFailed
		outcome.Error = domain.ErrMissingVideoID.Error()
		outcome.CompletedAt = time.Now()
		return outcome, nil
	case task.SourceURL == "":
		outcome.Status = domain.StatusFailed
		outcome.Error = domain.ErrMissingSourceURL.Error()
		outcome.CompletedAt = time.Now()
		return outcome, nil
	}
	if task.TargetName == "" {
		task.TargetName = task.VideoID
	}
	if task.Date == "" {
		task.Date = domain.Today()
	}

	transcriptKey := task.TargetName + ".txt"
	analysisKey := task.TargetName + "_analysis.json"

	var (
		title      string
		transcript string
	)

	// Download stage. Skipped when the audio is already on disk, or when a
	// transcript exists and the audio is no longer needed.
	audioKey, audioExists := o.findAudio(task)
	transcriptExists := !task.ForceReprocess && o.artifacts.Exists(task.Date, store.CategoryTranscription, transcriptKey)
	analysisExists := !task.ForceReprocess && o.artifacts.Exists(task.Date, store.CategoryAnalysis, analysisKey)

	switch {
	case !task.ForceReprocess && audioExists:
		outcome.Stages.Download = skipped(o.artifacts.Path(task.Date, store.CategoryAudio, audioKey), "audio already present")
		outcome.ArtifactPaths["audio"] = o.artifacts.Path(task.Date, store.CategoryAudio, audioKey)
	case transcriptExists:
		outcome.Stages.Download = skipped("", "transcript already present")
	default:
		destDir, err := o.artifacts.PartitionDir(task.Date, store.CategoryAudio)
		if err != nil {
			return o.fail(outcome, "download", err), nil
		}
		res, err := o.downloader.Fetch(ctx, task, destDir)
		if err != nil {
			return o.fail(outcome, "download", err), nil
		}
		title = res.Title
		outcome.Stages.Download = ok(res.AudioPath)
		outcome.ArtifactPaths["audio"] = res.AudioPath
		o.logger.Info("download complete",
			slog.String("video_id", task.VideoID),
			slog.String("audio_path", res.AudioPath))
	}

	// Transcription stage.
	transcriptPath := o.artifacts.Path(task.Date, store.CategoryTranscription, transcriptKey)
	if transcriptExists {
		outcome.Stages.Transcribe = skipped(transcriptPath, "transcript already present")
		outcome.ArtifactPaths["transcription"] = transcriptPath
		if !analysisExists {
			data, err := o.artifacts.Read(task.Date, store.CategoryTranscription, transcriptKey)
			if err != nil {
				return o.fail(outcome, "transcribe", err), nil
			}
			transcript = string(data)
		}
	} else {
		audioPath := outcome.ArtifactPaths["audio"]
		res, err := o.transcriber.Transcribe(ctx, audioPath, task.Options.ModelSize, task.Options.Language)
		if err != nil {
			return o.fail(outcome, "transcribe", err), nil
		}
		if _, err := o.artifacts.Write(task.Date, store.CategoryTranscription, transcriptKey, []byte(res.Text)); err != nil {
			return o.fail(outcome, "transcribe", err), nil
		}
		transcript = res.Text
		outcome.Stages.Transcribe = ok(transcriptPath)
		outcome.ArtifactPaths["transcription"] = transcriptPath
		o.logger.Info("transcription complete",
			slog.String("video_id", task.VideoID),
			slog.String("language", res.DetectedLanguage),
			slog.Int("chars", len(res.Text)))
	}

	// Extraction stage. Waits on the shared limiter so concurrent workers
	// do not flood the model endpoint.
	analysisPath := o.artifacts.Path(task.Date, store.CategoryAnalysis, analysisKey)
	if analysisExists {
		outcome.Stages.Extract = skipped(analysisPath, "analysis already present")
		outcome.ArtifactPaths["analysis"] = analysisPath
		outcome.Status = domain.StatusSuccess
		outcome.CompletedAt = time.Now()
		return outcome, nil
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return o.fail(outcome, "extract", err), nil
	}
	record, err := o.extractor.Extract(ctx, transcript, title)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			outcome.Stages.Extract = failedStage(err.Error())
			outcome.Status = domain.StatusFailed
			outcome.Error = err.Error()
			outcome.CompletedAt = time.Now()
			return outcome, err
		}
		// Audio and transcript survive; only the structured analysis is
		// missing, so the video counts as partially complete.
		outcome.Stages.Extract = failedStage(err.Error())
		outcome.Status = domain.StatusPartial
		outcome.Error = fmt.Sprintf("extract: %v", err)
		outcome.CompletedAt = time.Now()
		o.logger.Warn("extraction failed, keeping transcript",
			slog.String("video_id", task.VideoID),
			slog.String("error", err.Error()))
		return outcome, nil
	}

	record.VideoID = task.VideoID
	record.Date = task.Date
	if record.Title == "" {
		record.Title = title
	}
	record.RawTextRef = transcriptPath
	record.Normalize()

	if _, err := o.artifacts.WriteJSON(task.Date, store.CategoryAnalysis, analysisKey, record); err != nil {
		return o.fail(outcome, "extract", err), nil
	}
	outcome.Stages.Extract = ok(analysisPath)
	outcome.ArtifactPaths["analysis"] = analysisPath
	outcome.Status = domain.StatusSuccess
	outcome.CompletedAt = time.Now()
	o.logger.Info("pipeline complete",
		slog.String("video_id", task.VideoID),
		slog.Int("macro_items", len(record.MacroItems)),
		slog.Int("stock_items", len(record.StockItems)))
	return outcome, nil
}

// Reextract re-runs only the extraction stage against a stored transcript,
// overwriting any existing analysis for that video. Used to pick up prompt
// or model changes without touching audio or transcripts.
func (o *Orchestrator) Reextract(ctx context.Context, date, videoID string) (domain.PipelineOutcome, error) {
	outcome := domain.PipelineOutcome{
		VideoID:       videoID,
		ArtifactPaths: make(map[string]string),
	}
	transcriptKey := videoID + ".txt"
	analysisKey := videoID + "_analysis.json"

	data, err := o.artifacts.Read(date, store.CategoryTranscription, transcriptKey)
	if err != nil {
		return o.fail(outcome, "transcribe", err), nil
	}
	transcriptPath := o.artifacts.Path(date, store.CategoryTranscription, transcriptKey)
	outcome.Stages.Download = skipped("", "reextract only")
	outcome.Stages.Transcribe = skipped(transcriptPath, "reextract only")
	outcome.ArtifactPaths["transcription"] = transcriptPath

	if err := o.limiter.Wait(ctx); err != nil {
		return o.fail(outcome, "extract", err), nil
	}
	record, err := o.extractor.Extract(ctx, string(data), "")
	if err != nil {
		outcome.Stages.Extract = failedStage(err.Error())
		outcome.Status = domain.StatusFailed
		outcome.Error = err.Error()
		outcome.CompletedAt = time.Now()
		if errors.Is(err, domain.ErrRateLimited) {
			return outcome, err
		}
		return outcome, nil
	}

	record.VideoID = videoID
	record.Date = date
	record.RawTextRef = transcriptPath
	record.Normalize()

	path, err := o.artifacts.WriteJSON(date, store.CategoryAnalysis, analysisKey, record)
	if err != nil {
		return o.fail(outcome, "extract", err), nil
	}
	outcome.Stages.Extract = ok(path)
	outcome.ArtifactPaths["analysis"] = path
	outcome.Status = domain.StatusSuccess
	outcome.CompletedAt = time.Now()
	return outcome, nil
}

// findAudio probes the known audio extensions for an existing download,
// preferring the format the task asked for.
func (o *Orchestrator) findAudio(task domain.VideoTask) (string, bool) {
	exts := make([]string, 0, len(knownAudioExts)+1)
	if task.Options.AudioFormat != "" {
		exts = append(exts, task.Options.AudioFormat)
	}
	exts = append(exts, knownAudioExts...)
	for _, ext := range exts {
		key := task.TargetName + "." + ext
		if o.artifacts.Exists(task.Date, store.CategoryAudio, key) {
			return key, true
		}
	}
	return "", false
}

func (o *Orchestrator) fail(outcome domain.PipelineOutcome, stage string, err error) domain.PipelineOutcome {
	reason := err.Error()
	switch stage {
	case "download":
		outcome.Stages.Download = failedStage(reason)
	case "transcribe":
		outcome.Stages.Transcribe = failedStage(reason)
	case "extract":
		outcome.Stages.Extract = failedStage(reason)
	}
	outcome.Status = domain.StatusFailed
	outcome.Error = fmt.Sprintf("%s: %s", stage, reason)
	outcome.CompletedAt = time.Now()
	o.logger.Error("pipeline stage failed",
		slog.String("video_id", outcome.VideoID),
		slog.String("stage", stage),
		slog.String("error", reason))
	return outcome
}

func ok(ref string) domain.StageOutcome {
	return domain.StageOutcome{State: domain.StageOK, ArtifactRef: ref}
}

func skipped(ref, reason string) domain.StageOutcome {
	return domain.StageOutcome{State: domain.StageSkipped, ArtifactRef: ref, Reason: reason}
}

func failedStage(reason string) domain.StageOutcome {
	return domain.StageOutcome{State: domain.StageFailed, Reason: strings.TrimSpace(reason)}
}
