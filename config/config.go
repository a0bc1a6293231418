// ABOUTME: This file implements configuration loading from environment variables
// ABOUTME: Provides defaults and validation for the batch pipeline and dashboard server
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadConfig builds the configuration from defaults, an optional .env file,
// and the process environment, then validates it. Validation failures are
// configuration errors: the caller must abort before any task executes.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; explicit environment always wins.
	_ = godotenv.Load()

	config := defaultConfig()

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Root:      "./data",
			CacheSize: 512,
		},
		Batch: BatchConfig{
			Concurrency:         3,
			MaxRateLimitRetries: 3,
			ListTimeout:         2 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			ExtractInterval: 5 * time.Second,
			Burst:           1,
		},
		Retry: RetryConfig{
			BaseDelay:     1 * time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2.0,
			JitterFactor:  0.1,
		},
		Downloader: DownloaderConfig{
			BinPath:     "yt-dlp",
			AudioFormat: "webm",
			Timeout:     10 * time.Minute,
		},
		Transcriber: TranscriberConfig{
			Host:      "http://whisper-asr:9000",
			APIPath:   "/v1/transcribe",
			ModelSize: "base",
			Language:  "auto",
			Timeout:   5 * time.Minute,
		},
		Extractor: ExtractorConfig{
			Host:    "http://extractor-llm:11434",
			APIPath: "/api/generate",
			Model:   "qwen2.5:14b",
			Timeout: 240 * time.Second,
		},
		Aggregate: AggregateConfig{
			MacroWindowDays: 1,
			StockWindowDays: 7,
		},
		Server: ServerConfig{
			Port:            9300,
			ShutdownTimeout: 30 * time.Second,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    120 * time.Second,
		},
	}
}

func loadFromEnv(config *Config) error {
	var err error

	if config.Store.Root, err = envString("STORE_ROOT", config.Store.Root); err != nil {
		return err
	}
	if config.Store.CacheSize, err = envInt("STORE_CACHE_SIZE", config.Store.CacheSize); err != nil {
		return err
	}

	if config.Batch.Concurrency, err = envInt("BATCH_CONCURRENCY", config.Batch.Concurrency); err != nil {
		return err
	}
	if config.Batch.MaxRateLimitRetries, err = envInt("BATCH_MAX_RATE_LIMIT_RETRIES", config.Batch.MaxRateLimitRetries); err != nil {
		return err
	}
	if config.Batch.LedgerDir, err = envString("BATCH_LEDGER_DIR", config.Batch.LedgerDir); err != nil {
		return err
	}
	if config.Batch.ListTimeout, err = envDuration("BATCH_LIST_TIMEOUT", config.Batch.ListTimeout); err != nil {
		return err
	}

	if config.RateLimit.ExtractInterval, err = envDuration("RATE_LIMIT_EXTRACT_INTERVAL", config.RateLimit.ExtractInterval); err != nil {
		return err
	}
	if config.RateLimit.Burst, err = envInt("RATE_LIMIT_BURST", config.RateLimit.Burst); err != nil {
		return err
	}

	if config.Retry.BaseDelay, err = envDuration("RETRY_BASE_DELAY", config.Retry.BaseDelay); err != nil {
		return err
	}
	if config.Retry.MaxDelay, err = envDuration("RETRY_MAX_DELAY", config.Retry.MaxDelay); err != nil {
		return err
	}
	if config.Retry.BackoffFactor, err = envFloat("RETRY_BACKOFF_FACTOR", config.Retry.BackoffFactor); err != nil {
		return err
	}
	if config.Retry.JitterFactor, err = envFloat("RETRY_JITTER_FACTOR", config.Retry.JitterFactor); err != nil {
		return err
	}

	if config.Downloader.BinPath, err = envString("DOWNLOADER_BIN_PATH", config.Downloader.BinPath); err != nil {
		return err
	}
	if config.Downloader.AudioFormat, err = envString("DOWNLOADER_AUDIO_FORMAT", config.Downloader.AudioFormat); err != nil {
		return err
	}
	if config.Downloader.VideoFormat, err = envString("DOWNLOADER_VIDEO_FORMAT", config.Downloader.VideoFormat); err != nil {
		return err
	}
	if config.Downloader.Timeout, err = envDuration("DOWNLOADER_TIMEOUT", config.Downloader.Timeout); err != nil {
		return err
	}

	if config.Transcriber.Host, err = envString("TRANSCRIBER_HOST", config.Transcriber.Host); err != nil {
		return err
	}
	if config.Transcriber.APIPath, err = envString("TRANSCRIBER_API_PATH", config.Transcriber.APIPath); err != nil {
		return err
	}
	if config.Transcriber.ModelSize, err = envString("TRANSCRIBER_MODEL_SIZE", config.Transcriber.ModelSize); err != nil {
		return err
	}
	if config.Transcriber.Language, err = envString("TRANSCRIBER_LANGUAGE", config.Transcriber.Language); err != nil {
		return err
	}
	if config.Transcriber.Timeout, err = envDuration("TRANSCRIBER_TIMEOUT", config.Transcriber.Timeout); err != nil {
		return err
	}

	if config.Extractor.Host, err = envString("EXTRACTOR_HOST", config.Extractor.Host); err != nil {
		return err
	}
	if config.Extractor.APIPath, err = envString("EXTRACTOR_API_PATH", config.Extractor.APIPath); err != nil {
		return err
	}
	if config.Extractor.Model, err = envString("EXTRACTOR_MODEL", config.Extractor.Model); err != nil {
		return err
	}
	if config.Extractor.APIKey, err = envString("EXTRACTOR_API_KEY", config.Extractor.APIKey); err != nil {
		return err
	}
	if config.Extractor.Timeout, err = envDuration("EXTRACTOR_TIMEOUT", config.Extractor.Timeout); err != nil {
		return err
	}

	if config.Aggregate.MacroWindowDays, err = envInt("AGGREGATE_MACRO_WINDOW_DAYS", config.Aggregate.MacroWindowDays); err != nil {
		return err
	}
	if config.Aggregate.StockWindowDays, err = envInt("AGGREGATE_STOCK_WINDOW_DAYS", config.Aggregate.StockWindowDays); err != nil {
		return err
	}

	if config.Server.Port, err = envInt("SERVER_PORT", config.Server.Port); err != nil {
		return err
	}
	if config.Server.ShutdownTimeout, err = envDuration("SERVER_SHUTDOWN_TIMEOUT", config.Server.ShutdownTimeout); err != nil {
		return err
	}
	if config.Server.ReadTimeout, err = envDuration("SERVER_READ_TIMEOUT", config.Server.ReadTimeout); err != nil {
		return err
	}
	if config.Server.WriteTimeout, err = envDuration("SERVER_WRITE_TIMEOUT", config.Server.WriteTimeout); err != nil {
		return err
	}

	return nil
}

func envString(key, fallback string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return fallback, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return parsed, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return parsed, nil
}
