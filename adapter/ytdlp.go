// ABOUTME: This file wraps the yt-dlp binary as Downloader and ChannelLister
// ABOUTME: Media selection mirrors the formats the transcriber accepts downstream
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"finance-insight/config"
	"finance-insight/domain"
)

// YTDLPClient shells out to yt-dlp for downloads and channel listings.
type YTDLPClient struct {
	cfg    config.DownloaderConfig
	logger *slog.Logger
}

// NewYTDLPClient creates a yt-dlp backed downloader.
func NewYTDLPClient(cfg config.DownloaderConfig, logger *slog.Logger) *YTDLPClient {
	return &YTDLPClient{cfg: cfg, logger: logger}
}

// CheckBinary verifies the yt-dlp binary is reachable. Called once at
// startup; a missing binary is a configuration error, not a task failure.
func (c *YTDLPClient) CheckBinary() error {
	if _, err := exec.LookPath(c.cfg.BinPath); err != nil {
		return fmt.Errorf("yt-dlp binary %q not found on PATH: %w", c.cfg.BinPath, err)
	}
	return nil
}

type ytdlpInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	UploadDate string `json:"upload_date"`
	Duration   int    `json:"duration"`
	Ext        string `json:"ext"`
}

// Fetch downloads the best matching audio stream for the task into destDir.
func (c *YTDLPClient) Fetch(ctx context.Context, task domain.VideoTask, destDir string) (*DownloadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	format := "bestaudio"
	if c.cfg.AudioFormat != "" {
		format = fmt.Sprintf("bestaudio[ext=%s]/bestaudio", c.cfg.AudioFormat)
	}

	outputTemplate := filepath.Join(destDir, task.TargetName+".%(ext)s")

	args := []string{
		task.SourceURL,
		"--no-playlist",
		"--no-progress",
		"-f", format,
		"-o", outputTemplate,
		"--print-json",
	}

	c.logger.DebugContext(ctx, "running yt-dlp download",
		"video_id", task.VideoID,
		"format", format,
		"dest", destDir)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cfg.BinPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp download failed for %s: %w: %s",
			task.VideoID, err, firstLine(stderr.String()))
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output for %s: %w", task.VideoID, err)
	}

	ext := info.Ext
	if ext == "" {
		ext = c.cfg.AudioFormat
	}

	result := &DownloadResult{
		AudioPath:   filepath.Join(destDir, task.TargetName+"."+ext),
		Title:       info.Title,
		PublishDate: formatUploadDate(info.UploadDate),
		Duration:    info.Duration,
	}

	c.logger.InfoContext(ctx, "download completed",
		"video_id", task.VideoID,
		"title", info.Title,
		"audio_path", result.AudioPath)

	return result, nil
}

type ytdlpPlaylist struct {
	Entries []struct {
		ID    string `json:"id"`
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"entries"`
}

// ListVideos returns up to limit entries of a channel, newest first.
func (c *YTDLPClient) ListVideos(ctx context.Context, channelURL string, limit int) ([]domain.VideoRef, error) {
	args := []string{channelURL, "--flat-playlist", "-J"}
	if limit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(limit))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cfg.BinPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp channel listing failed for %s: %w: %s",
			channelURL, err, firstLine(stderr.String()))
	}

	var playlist ytdlpPlaylist
	if err := json.Unmarshal(stdout.Bytes(), &playlist); err != nil {
		return nil, fmt.Errorf("parse channel listing for %s: %w", channelURL, err)
	}

	refs := make([]domain.VideoRef, 0, len(playlist.Entries))
	for _, e := range playlist.Entries {
		if e.ID == "" {
			continue
		}
		u := e.URL
		if u == "" {
			u = "https://www.youtube.com/watch?v=" + e.ID
		}
		refs = append(refs, domain.VideoRef{VideoID: e.ID, URL: u, Title: e.Title})
	}

	c.logger.InfoContext(ctx, "channel listing completed",
		"channel", channelURL,
		"videos", len(refs))

	return refs, nil
}

// ExtractVideoID pulls the video identifier out of the common YouTube URL
// shapes. Returns an empty string when the URL has no recognizable ID.
func ExtractVideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		if strings.HasPrefix(parsed.Path, "/watch") {
			return parsed.Query().Get("v")
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/"} {
			if strings.HasPrefix(parsed.Path, prefix) {
				return strings.TrimPrefix(parsed.Path, prefix)
			}
		}
	case "youtu.be":
		return strings.TrimPrefix(parsed.Path, "/")
	}

	return ""
}

// formatUploadDate converts yt-dlp's YYYYMMDD into the store's YYYY-MM-DD.
func formatUploadDate(raw string) string {
	if len(raw) != 8 {
		return ""
	}
	return raw[:4] + "-" + raw[4:6] + "-" + raw[6:]
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
