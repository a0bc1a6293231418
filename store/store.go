// ABOUTME: This file implements the date-partitioned filesystem artifact store
// ABOUTME: Artifacts live under <root>/<YYYY-MM-DD>/<category>/<key> with atomic writes
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"finance-insight/domain"
)

// Category names the artifact subdirectories inside each date partition.
type Category string

const (
	CategoryAudio         Category = "audio"
	CategoryTranscription Category = "transcription"
	CategoryAnalysis      Category = "analysis"
	CategoryReports       Category = "reports"
)

var dateDirPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// SummaryReportPrefix distinguishes summary reports from batch ledgers
// inside the reports category.
const SummaryReportPrefix = "summary_report_"

// Entry identifies one stored artifact.
type Entry struct {
	Date string
	Key  string
	Path string
}

// ArtifactStore persists per-video pipeline outputs on the local filesystem.
// Writes are scoped to unique per-video keys, so concurrent pipeline workers
// never contend on the same artifact.
type ArtifactStore struct {
	root   string
	cache  *lru.Cache[string, *domain.AnalysisRecord]
	logger *slog.Logger
}

// New creates an artifact store rooted at root. The cache bounds how many
// parsed analysis records stay in memory between aggregation runs.
func New(root string, cacheSize int, logger *slog.Logger) (*ArtifactStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root %s: %w", root, err)
	}

	cache, err := lru.New[string, *domain.AnalysisRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}

	return &ArtifactStore{root: root, cache: cache, logger: logger}, nil
}

// Root returns the store's base directory.
func (s *ArtifactStore) Root() string {
	return s.root
}

// Path returns the absolute path an artifact would occupy. It does not touch
// the filesystem.
func (s *ArtifactStore) Path(date string, category Category, key string) string {
	return filepath.Join(s.root, date, string(category), key)
}

// PartitionDir ensures a date/category partition exists and returns its
// path. Used by stages that write large media files directly instead of
// going through Write.
func (s *ArtifactStore) PartitionDir(date string, category Category) (string, error) {
	dir := filepath.Join(s.root, date, string(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create partition %s: %w", dir, err)
	}
	return dir, nil
}

// Write persists payload under the given date partition and category,
// creating directories as needed. The write is atomic: a temp file is
// renamed over the target so a crash never leaves a partial artifact.
func (s *ArtifactStore) Write(date string, category Category, key string, payload []byte) (string, error) {
	path := s.Path(date, category, key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create partition for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fi-tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return "", fmt.Errorf("atomic rename for %s: %w", path, err)
	}

	s.cache.Remove(path)

	return path, nil
}

// WriteJSON marshals v with indentation and persists it via Write.
func (s *ArtifactStore) WriteJSON(date string, category Category, key string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal JSON for %s/%s/%s: %w", date, category, key, err)
	}
	data = append(data, '\n')
	return s.Write(date, category, key, data)
}

// Read returns the raw payload of one artifact, or
// domain.ErrArtifactNotFound when it does not exist.
func (s *ArtifactStore) Read(date string, category Category, key string) ([]byte, error) {
	path := s.Path(date, category, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether an artifact is already persisted.
func (s *ArtifactStore) Exists(date string, category Category, key string) bool {
	info, err := os.Stat(s.Path(date, category, key))
	return err == nil && !info.IsDir()
}

// ReadAnalysis loads and parses one analysis record, going through the LRU
// cache. Unparseable payloads return domain.ErrMalformedRecord.
func (s *ArtifactStore) ReadAnalysis(date, key string) (*domain.AnalysisRecord, error) {
	path := s.Path(date, CategoryAnalysis, key)

	if rec, ok := s.cache.Get(path); ok {
		return rec, nil
	}

	data, err := s.Read(date, CategoryAnalysis, key)
	if err != nil {
		return nil, err
	}

	var rec domain.AnalysisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrMalformedRecord)
	}
	if rec.VideoID == "" {
		return nil, fmt.Errorf("%s: missing video_id: %w", path, domain.ErrMalformedRecord)
	}
	if rec.Date == "" {
		rec.Date = date
	}
	rec.Normalize()

	s.cache.Add(path, &rec)

	return &rec, nil
}

// ListDates returns the date partitions inside [from, to], ascending.
// Dates compare lexicographically because of the YYYY-MM-DD layout.
func (s *ArtifactStore) ListDates(from, to string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store root %s: %w", s.root, err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !dateDirPattern.MatchString(name) {
			continue
		}
		if name < from || name > to {
			continue
		}
		dates = append(dates, name)
	}
	sort.Strings(dates)

	return dates, nil
}

// List enumerates artifacts of one category across a date range, ascending
// by date then key.
func (s *ArtifactStore) List(from, to string, category Category) ([]Entry, error) {
	dates, err := s.ListDates(from, to)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, date := range dates {
		dir := filepath.Join(s.root, date, string(category))
		files, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read partition %s: %w", dir, err)
		}

		keys := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() {
				keys = append(keys, f.Name())
			}
		}
		sort.Strings(keys)

		for _, key := range keys {
			out = append(out, Entry{Date: date, Key: key, Path: filepath.Join(dir, key)})
		}
	}

	return out, nil
}

// LatestReport returns the most recent persisted summary report across all
// partitions, or domain.ErrArtifactNotFound when none exists.
func (s *ArtifactStore) LatestReport() (*domain.SummaryReport, error) {
	entries, err := s.List("0000-00-00", "9999-99-99", CategoryReports)
	if err != nil {
		return nil, err
	}

	var latest Entry
	for _, e := range entries {
		if strings.HasPrefix(e.Key, SummaryReportPrefix) {
			latest = e
		}
	}
	if latest.Path == "" {
		return nil, domain.ErrArtifactNotFound
	}
	data, err := os.ReadFile(latest.Path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", latest.Path, err)
	}

	var report domain.SummaryReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("%s: %w", latest.Path, domain.ErrMalformedRecord)
	}

	return &report, nil
}
