package config

import (
	"time"
)

// Config aggregates all pipeline configuration blocks.
type Config struct {
	Store       StoreConfig       `json:"store"`
	Batch       BatchConfig       `json:"batch"`
	RateLimit   RateLimitConfig   `json:"rate_limit"`
	Retry       RetryConfig       `json:"retry"`
	Downloader  DownloaderConfig  `json:"downloader"`
	Transcriber TranscriberConfig `json:"transcriber"`
	Extractor   ExtractorConfig   `json:"extractor"`
	Aggregate   AggregateConfig   `json:"aggregate"`
	Server      ServerConfig      `json:"server"`
}

type StoreConfig struct {
	Root      string `json:"root" env:"STORE_ROOT" default:"./data"`
	CacheSize int    `json:"cache_size" env:"STORE_CACHE_SIZE" default:"512"`
}

type BatchConfig struct {
	Concurrency         int           `json:"concurrency" env:"BATCH_CONCURRENCY" default:"3"`
	MaxRateLimitRetries int           `json:"max_rate_limit_retries" env:"BATCH_MAX_RATE_LIMIT_RETRIES" default:"3"`
	LedgerDir           string        `json:"ledger_dir" env:"BATCH_LEDGER_DIR" default:""`
	ListTimeout         time.Duration `json:"list_timeout" env:"BATCH_LIST_TIMEOUT" default:"2m"`
}

type RateLimitConfig struct {
	ExtractInterval time.Duration `json:"extract_interval" env:"RATE_LIMIT_EXTRACT_INTERVAL" default:"5s"`
	Burst           int           `json:"burst" env:"RATE_LIMIT_BURST" default:"1"`
}

type RetryConfig struct {
	BaseDelay     time.Duration `json:"base_delay" env:"RETRY_BASE_DELAY" default:"1s"`
	MaxDelay      time.Duration `json:"max_delay" env:"RETRY_MAX_DELAY" default:"30s"`
	BackoffFactor float64       `json:"backoff_factor" env:"RETRY_BACKOFF_FACTOR" default:"2.0"`
	JitterFactor  float64       `json:"jitter_factor" env:"RETRY_JITTER_FACTOR" default:"0.1"`
}

type DownloaderConfig struct {
	BinPath     string        `json:"bin_path" env:"DOWNLOADER_BIN_PATH" default:"yt-dlp"`
	AudioFormat string        `json:"audio_format" env:"DOWNLOADER_AUDIO_FORMAT" default:"webm"`
	VideoFormat string        `json:"video_format" env:"DOWNLOADER_VIDEO_FORMAT" default:""`
	Timeout     time.Duration `json:"timeout" env:"DOWNLOADER_TIMEOUT" default:"10m"`
}

type TranscriberConfig struct {
	Host      string        `json:"host" env:"TRANSCRIBER_HOST" default:"http://whisper-asr:9000"`
	APIPath   string        `json:"api_path" env:"TRANSCRIBER_API_PATH" default:"/v1/transcribe"`
	ModelSize string        `json:"model_size" env:"TRANSCRIBER_MODEL_SIZE" default:"base"`
	Language  string        `json:"language" env:"TRANSCRIBER_LANGUAGE" default:"auto"`
	Timeout   time.Duration `json:"timeout" env:"TRANSCRIBER_TIMEOUT" default:"5m"`
}

type ExtractorConfig struct {
	Host    string        `json:"host" env:"EXTRACTOR_HOST" default:"http://extractor-llm:11434"`
	APIPath string        `json:"api_path" env:"EXTRACTOR_API_PATH" default:"/api/generate"`
	Model   string        `json:"model" env:"EXTRACTOR_MODEL" default:"qwen2.5:14b"`
	APIKey  string        `json:"-" env:"EXTRACTOR_API_KEY" default:""`
	Timeout time.Duration `json:"timeout" env:"EXTRACTOR_TIMEOUT" default:"240s"` // Extended for LLM processing
}

type AggregateConfig struct {
	MacroWindowDays int `json:"macro_window_days" env:"AGGREGATE_MACRO_WINDOW_DAYS" default:"1"`
	StockWindowDays int `json:"stock_window_days" env:"AGGREGATE_STOCK_WINDOW_DAYS" default:"7"`
}

type ServerConfig struct {
	Port            int           `json:"port" env:"SERVER_PORT" default:"9300"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"120s"` // Aggregation runs inline on /v1/summary
}
