// ABOUTME: Capability contracts for the external pipeline stage collaborators
// ABOUTME: Each adapter returns explicit errors; no panic-based control flow crosses this boundary
package adapter

import (
	"context"

	"finance-insight/domain"
)

// DownloadResult is the output of a successful media fetch.
type DownloadResult struct {
	AudioPath   string
	VideoPath   string
	Title       string
	PublishDate string
	Duration    int
}

// TranscriptionResult is the output of a successful transcription.
type TranscriptionResult struct {
	Text             string
	DetectedLanguage string
}

// Downloader fetches a video's media onto the local filesystem.
type Downloader interface {
	Fetch(ctx context.Context, task domain.VideoTask, destDir string) (*DownloadResult, error)
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, modelSize, language string) (*TranscriptionResult, error)
}

// Extractor turns a transcript into a structured analysis record. A
// rate-limit signal from the backing model surfaces as domain.ErrRateLimited
// so the batch controller can re-enqueue the task.
type Extractor interface {
	Extract(ctx context.Context, transcript, videoTitle string) (*domain.AnalysisRecord, error)
}

// ChannelLister enumerates the newest videos of a channel.
type ChannelLister interface {
	ListVideos(ctx context.Context, channelURL string, limit int) ([]domain.VideoRef, error)
}
