package domain

import (
	"time"
)

// DayFormat is the layout used for date-partitioned artifact directories
// and for every date field carried by analysis records.
const DayFormat = "2006-01-02"

// MediaOptions carries the media and model parameters requested for one video.
type MediaOptions struct {
	AudioFormat string `json:"audio_format"`
	VideoFormat string `json:"video_format,omitempty"`
	ModelSize   string `json:"model_size"`
	Language    string `json:"language"`
}

// VideoRef is one entry of a channel listing.
type VideoRef struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
}

// VideoTask is one unit of per-video work. Tasks are immutable once enqueued;
// the batch controller creates them from a channel listing and exactly one
// orchestrator run consumes each.
type VideoTask struct {
	VideoID        string       `json:"video_id"`
	SourceURL      string       `json:"source_url"`
	TargetName     string       `json:"target_name"`
	Date           string       `json:"date"`
	Options        MediaOptions `json:"options"`
	ForceReprocess bool         `json:"force_reprocess,omitempty"`
}

// TaskStatus is the terminal status of a pipeline run.
type TaskStatus string

const (
	StatusSuccess TaskStatus = "success"
	StatusPartial TaskStatus = "partial"
	StatusFailed  TaskStatus = "failed"
)

// StageState describes how a single pipeline stage ended.
type StageState string

const (
	StageOK      StageState = "ok"
	StageSkipped StageState = "skipped"
	StageFailed  StageState = "failed"
)

// StageOutcome records one stage's result inside a PipelineOutcome.
type StageOutcome struct {
	State       StageState `json:"state"`
	ArtifactRef string     `json:"artifact_ref,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// StageResults groups the per-stage outcomes of one pipeline run.
type StageResults struct {
	Download   StageOutcome `json:"download"`
	Transcribe StageOutcome `json:"transcribe"`
	Extract    StageOutcome `json:"extract"`
}

// PipelineOutcome is the terminal result record for one VideoTask. It is
// created once at orchestrator completion and never mutated afterwards; the
// batch controller appends it to its run ledger.
type PipelineOutcome struct {
	VideoID       string            `json:"video_id"`
	Status        TaskStatus        `json:"status"`
	Stages        StageResults      `json:"stage_results"`
	ArtifactPaths map[string]string `json:"artifact_paths,omitempty"`
	Error         string            `json:"error,omitempty"`
	CompletedAt   time.Time         `json:"completed_at"`
}

// Today returns the current date in the store's partition layout.
func Today() string {
	return time.Now().Format(DayFormat)
}

// ParseDay parses a YYYY-MM-DD date string.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}
