package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// MinPages and MaxPages bound the page limit of a run.
	MinPages = 1
	MaxPages = 1000
)

// Config holds scraper configuration.
type Config struct {
	TargetURL       string
	MaxPages        int
	Fetcher         string // chrome or static
	Headless        bool
	WindowWidth     int
	WindowHeight    int
	Timeout         time.Duration
	SettleDelay     time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	OutputFile      string
	OutputFormat    string // csv, json, or dual
	UserAgent       string
	LemmaCacheSize  int
	TopWords        int
	MetricsAddr     string
	Verbose         bool
}

// DefaultConfig returns the defaults of a Flipkart review run.
func DefaultConfig() *Config {
	return &Config{
		MaxPages:        100,
		Fetcher:         "chrome",
		Headless:        true,
		WindowWidth:     1920,
		WindowHeight:    1080,
		Timeout:         10 * time.Second,
		SettleDelay:     5 * time.Second,
		MaxRetries:      0,
		RetryBackoff:    500 * time.Millisecond,
		RetryBackoffMax: 5 * time.Second,
		OutputFile:      "output/reviews.csv",
		OutputFormat:    "csv",
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		LemmaCacheSize:  4096,
		TopWords:        10,
		Verbose:         false,
	}
}

// Validate ensures all configuration values are coherent. The target URL
// itself is checked by the scraper, which owns the review URL shape.
func (c *Config) Validate() error {
	if c.TargetURL != "" {
		parsedURL, err := url.Parse(c.TargetURL)
		if err != nil {
			return fmt.Errorf("invalid target URL: %w", err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("target URL must include a host")
		}
	}

	if c.MaxPages < MinPages || c.MaxPages > MaxPages {
		return fmt.Errorf("max pages must be between %d and %d", MinPages, MaxPages)
	}
	if c.Fetcher != "chrome" && c.Fetcher != "static" {
		return fmt.Errorf("fetcher must be chrome or static")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("window size must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.LemmaCacheSize < 0 {
		return fmt.Errorf("lemma cache size cannot be negative")
	}
	if c.TopWords < 0 {
		return fmt.Errorf("top words cannot be negative")
	}

	return nil
}

// EnvString returns the trimmed value of key if it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// EnvInt parses key as an integer if it is set.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvDuration parses key as a time.Duration if it is set.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// ApplyEnv overrides c with REVIEWS_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("REVIEWS_URL"); ok {
		c.TargetURL = v
	}
	if v, ok, err := EnvInt("REVIEWS_PAGES"); err != nil {
		return err
	} else if ok {
		c.MaxPages = v
	}
	if v, ok := EnvString("REVIEWS_FETCHER"); ok {
		c.Fetcher = strings.ToLower(v)
	}
	if v, ok, err := EnvDuration("REVIEWS_TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.Timeout = v
	}
	if v, ok, err := EnvDuration("REVIEWS_SETTLE_DELAY"); err != nil {
		return err
	} else if ok {
		c.SettleDelay = v
	}
	if v, ok, err := EnvInt("REVIEWS_MAX_RETRIES"); err != nil {
		return err
	} else if ok {
		c.MaxRetries = v
	}
	if v, ok := EnvString("REVIEWS_OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString("REVIEWS_FORMAT"); ok {
		c.OutputFormat = strings.ToLower(v)
	}
	if v, ok := EnvString("REVIEWS_USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := EnvString("REVIEWS_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	return nil
}
