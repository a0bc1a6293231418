package config

import (
	"fmt"
	"net/url"
)

func validateConfig(config *Config) error {
	if config.Store.Root == "" {
		return fmt.Errorf("store root must not be empty")
	}
	if config.Store.CacheSize <= 0 {
		return fmt.Errorf("store cache size must be positive, got %d", config.Store.CacheSize)
	}

	if config.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch concurrency must be positive, got %d", config.Batch.Concurrency)
	}
	if config.Batch.MaxRateLimitRetries < 0 {
		return fmt.Errorf("max rate limit retries must not be negative, got %d", config.Batch.MaxRateLimitRetries)
	}

	if config.RateLimit.ExtractInterval < 0 {
		return fmt.Errorf("extract interval must not be negative, got %s", config.RateLimit.ExtractInterval)
	}
	if config.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive, got %d", config.RateLimit.Burst)
	}

	if config.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry base delay must be positive, got %s", config.Retry.BaseDelay)
	}
	if config.Retry.MaxDelay < config.Retry.BaseDelay {
		return fmt.Errorf("retry max delay %s must not be below base delay %s", config.Retry.MaxDelay, config.Retry.BaseDelay)
	}
	if config.Retry.BackoffFactor < 1.0 {
		return fmt.Errorf("retry backoff factor must be at least 1.0, got %g", config.Retry.BackoffFactor)
	}

	if config.Downloader.BinPath == "" {
		return fmt.Errorf("downloader binary path must not be empty")
	}

	if err := validateHost("transcriber", config.Transcriber.Host); err != nil {
		return err
	}
	if err := validateHost("extractor", config.Extractor.Host); err != nil {
		return err
	}

	if config.Aggregate.MacroWindowDays <= 0 {
		return fmt.Errorf("macro window days must be positive, got %d", config.Aggregate.MacroWindowDays)
	}
	if config.Aggregate.StockWindowDays <= 0 {
		return fmt.Errorf("stock window days must be positive, got %d", config.Aggregate.StockWindowDays)
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", config.Server.Port)
	}

	return nil
}

func validateHost(name, host string) error {
	if host == "" {
		return fmt.Errorf("%s host must not be empty", name)
	}
	parsed, err := url.Parse(host)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s host must be a valid URL, got %q", name, host)
	}
	return nil
}
