package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"finance-insight/config"
	"finance-insight/domain"
)

// WhisperClient talks to a whisper ASR HTTP service.
type WhisperClient struct {
	cfg    config.TranscriberConfig
	client *http.Client
	logger *slog.Logger
}

// NewWhisperClient creates a transcriber backed by a whisper HTTP service.
func NewWhisperClient(cfg config.TranscriberConfig, logger *slog.Logger) *WhisperClient {
	return &WhisperClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe uploads the audio file and returns the transcription. An empty
// transcript is reported as domain.ErrEmptyTranscript so the pipeline fails
// the stage instead of feeding nothing to the extractor.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath, modelSize, language string) (*TranscriptionResult, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file %s: %w", audioPath, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			c.logger.Error("failed to close audio file", "path", audioPath, "error", err)
		}
	}()

	// The multipart body is streamed through a pipe so multi-hundred-MB
	// audio files never sit in memory. The writer side reports its error
	// through the pipe; the request fails with it on read.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(func() error {
			part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
			if err != nil {
				return fmt.Errorf("create multipart body: %w", err)
			}
			if _, err := io.Copy(part, f); err != nil {
				return fmt.Errorf("copy audio into request: %w", err)
			}
			if err := writer.WriteField("model_size", modelSize); err != nil {
				return fmt.Errorf("write model_size field: %w", err)
			}
			if language != "" && language != "auto" {
				if err := writer.WriteField("language", language); err != nil {
					return fmt.Errorf("write language field: %w", err)
				}
			}
			return writer.Close()
		}())
	}()

	apiURL := c.cfg.Host + c.cfg.APIPath

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodPost, apiURL, pr)
	if err != nil {
		return nil, fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.DebugContext(ctx, "sending transcription request",
		"api_url", apiURL,
		"model_size", modelSize,
		"audio_path", audioPath)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transcriber returned status %s: %s", resp.Status, firstLine(string(respBody)))
	}

	var parsed whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse transcriber response: %w", err)
	}

	if parsed.Text == "" {
		return nil, domain.ErrEmptyTranscript
	}

	c.logger.InfoContext(ctx, "transcription completed",
		"audio_path", audioPath,
		"language", parsed.Language,
		"text_length", len(parsed.Text))

	return &TranscriptionResult{Text: parsed.Text, DetectedLanguage: parsed.Language}, nil
}
