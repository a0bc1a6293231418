// ABOUTME: Domain-level sentinel errors for the finance-insight pipeline
// ABOUTME: These errors are used with errors.Is() for error type checking
package domain

import "errors"

// Artifact store errors
var (
	// ErrArtifactNotFound indicates the requested artifact does not exist
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrMalformedRecord indicates a persisted analysis record could not be
	// parsed. Aggregation skips and counts these, never aborts on them.
	ErrMalformedRecord = errors.New("malformed analysis record")
)

// Stage adapter errors
var (
	// ErrRateLimited indicates the extractor reported a rate-limit signal.
	// The batch controller re-enqueues tasks failing with this error.
	ErrRateLimited = errors.New("extractor rate limited")

	// ErrRateLimitExhausted indicates a task exceeded the re-enqueue bound
	ErrRateLimitExhausted = errors.New("rate_limited_exhausted")

	// ErrAuthFailed indicates the extractor rejected our credentials
	ErrAuthFailed = errors.New("extractor authentication failed")

	// ErrInvalidExtraction indicates the model returned output that does not
	// parse into an analysis record
	ErrInvalidExtraction = errors.New("invalid extraction response")

	// ErrEmptyTranscript indicates transcription produced no usable text
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// Validation errors
var (
	// ErrMissingVideoID indicates a task without a video identifier
	ErrMissingVideoID = errors.New("video ID is required")

	// ErrMissingSourceURL indicates a task without a source URL
	ErrMissingSourceURL = errors.New("source URL is required")
)
