// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all configuration knobs for a digest run.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Summarize SummarizeConfig `mapstructure:"summarize"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Ops       OpsConfig       `mapstructure:"ops"`
}

// LogConfig toggles zap development features.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// FetchConfig governs the fetch orchestrator and its strategy tiers.
type FetchConfig struct {
	CacheEnabled bool            `mapstructure:"cache_enabled"`
	HeadersFile  string          `mapstructure:"headers_file"`
	Primary      PrimaryConfig   `mapstructure:"primary"`
	Detector     DetectorConfig  `mapstructure:"detector"`
	Reader       ReaderConfig    `mapstructure:"reader"`
	RenderCLI    RenderCLIConfig `mapstructure:"render_cli"`
	Headless     HeadlessConfig  `mapstructure:"headless"`
}

// PrimaryConfig configures the direct HTTP fetch tier.
type PrimaryConfig struct {
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	MaxRetries       int     `mapstructure:"max_retries"`
	BackoffInitialMs int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int     `mapstructure:"backoff_max_ms"`
	MaxBodyBytes     int     `mapstructure:"max_body_bytes"`
	RatePerDomain    float64 `mapstructure:"rate_per_domain"`
	UserAgent        string  `mapstructure:"user_agent"`
}

// Timeout returns the per-attempt deadline for the primary tier.
func (c PrimaryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c PrimaryConfig) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay ceiling.
func (c PrimaryConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// DetectorConfig tunes the challenge-page heuristic applied to primary-tier
// responses. MinHTMLBytes of zero disables the size check.
type DetectorConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	MinHTMLBytes int      `mapstructure:"min_html_bytes"`
	Keywords     []string `mapstructure:"keywords"`
	Selectors    []string `mapstructure:"selectors"`
}

// ReaderConfig configures the fallback-A Markdown reader service.
type ReaderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	APIKey         string `mapstructure:"api_key"`
}

// Timeout returns the reader request deadline.
func (c ReaderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RenderCLIConfig configures the fallback-B subprocess renderer. Args may
// contain the {url} placeholder, substituted per invocation.
type RenderCLIConfig struct {
	Command        string   `mapstructure:"command"`
	Args           []string `mapstructure:"args"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// Timeout returns the subprocess deadline.
func (c RenderCLIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HeadlessConfig configures the optional chromedp render tier. Disabled by
// default; enabling it appends a fourth tier to the strategy list.
type HeadlessConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxParallel    int     `mapstructure:"max_parallel"`
	DomainQPS      float64 `mapstructure:"domain_qps"`
}

// Timeout returns the navigation deadline for one render.
func (c HeadlessConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PipelineConfig governs the worker pool.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// NormalizeConfig gates normalizer output.
type NormalizeConfig struct {
	MinChars int `mapstructure:"min_chars"`
}

// SummarizeConfig configures the summarization adapter.
type SummarizeConfig struct {
	Provider       string  `mapstructure:"provider"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	APIKey         string  `mapstructure:"api_key"`
}

// Timeout returns the summarization call deadline.
func (c SummarizeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ProgressConfig tunes the telemetry event hub.
type ProgressConfig struct {
	QueueSize       int  `mapstructure:"queue_size"`
	BatchSize       int  `mapstructure:"batch_size"`
	FlushIntervalMs int  `mapstructure:"flush_interval_ms"`
	LogEvents       bool `mapstructure:"log_events"`
}

// FlushInterval returns the hub flush cadence.
func (c ProgressConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// OpsConfig controls the optional operational HTTP server. An empty listen
// address disables it.
type OpsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds a Config from disk and environment. A .env file in the working
// directory is honored first so API keys never need exporting by hand. When
// path is empty, config.yaml is searched in . and ./configs; a missing file is
// fine, defaults and environment cover everything.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ALERTDIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Anthropic key is conventionally set under its own name.
	_ = v.BindEnv("summarize.api_key", "ANTHROPIC_API_KEY", "ALERTDIGEST_SUMMARIZE_API_KEY")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "")

	v.SetDefault("fetch.cache_enabled", true)
	v.SetDefault("fetch.headers_file", "configs/headers.yaml")
	v.SetDefault("fetch.primary.timeout_seconds", 10)
	v.SetDefault("fetch.primary.max_retries", 3)
	v.SetDefault("fetch.primary.backoff_initial_ms", 250)
	v.SetDefault("fetch.primary.backoff_max_ms", 5000)
	v.SetDefault("fetch.primary.max_body_bytes", 5*1024*1024)
	v.SetDefault("fetch.primary.rate_per_domain", 4)
	v.SetDefault("fetch.primary.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("fetch.detector.enabled", true)
	v.SetDefault("fetch.detector.min_html_bytes", 0)
	v.SetDefault("fetch.detector.keywords", []string{
		"verify you are human",
		"are you a robot",
		"unusual traffic from your",
		"cf-browser-verification",
		"just a moment...",
	})
	v.SetDefault("fetch.detector.selectors", []string{"#challenge-form", "#cf-challenge-running"})
	v.SetDefault("fetch.reader.base_url", "https://r.jina.ai")
	v.SetDefault("fetch.reader.timeout_seconds", 20)
	v.SetDefault("fetch.render_cli.command", "trafilatura")
	v.SetDefault("fetch.render_cli.args", []string{"--markdown", "-u", "{url}"})
	v.SetDefault("fetch.render_cli.timeout_seconds", 25)
	v.SetDefault("fetch.headless.enabled", false)
	v.SetDefault("fetch.headless.timeout_seconds", 15)
	v.SetDefault("fetch.headless.max_parallel", 2)
	v.SetDefault("fetch.headless.domain_qps", 0.5)

	v.SetDefault("pipeline.workers", 5)
	v.SetDefault("normalize.min_chars", 100)

	v.SetDefault("summarize.provider", "anthropic")
	v.SetDefault("summarize.model", "claude-sonnet-4-20250514")
	v.SetDefault("summarize.max_tokens", 300)
	v.SetDefault("summarize.temperature", 0.3)
	v.SetDefault("summarize.timeout_seconds", 60)

	v.SetDefault("progress.queue_size", 4096)
	v.SetDefault("progress.batch_size", 256)
	v.SetDefault("progress.flush_interval_ms", 500)
	v.SetDefault("progress.log_events", false)

	v.SetDefault("ops.listen_addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0")
	}
	if c.Fetch.Primary.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.primary.timeout_seconds must be > 0")
	}
	if c.Fetch.Primary.MaxRetries < 0 {
		return fmt.Errorf("fetch.primary.max_retries must be >= 0")
	}
	if c.Fetch.Primary.BackoffInitialMs <= 0 {
		return fmt.Errorf("fetch.primary.backoff_initial_ms must be > 0")
	}
	if c.Fetch.Primary.BackoffMaxMs < c.Fetch.Primary.BackoffInitialMs {
		return fmt.Errorf("fetch.primary.backoff_max_ms must be >= backoff_initial_ms")
	}
	if c.Fetch.Reader.BaseURL == "" {
		return fmt.Errorf("fetch.reader.base_url must be set")
	}
	if c.Fetch.RenderCLI.Command == "" {
		return fmt.Errorf("fetch.render_cli.command must be set")
	}
	if c.Fetch.Headless.Enabled && c.Fetch.Headless.MaxParallel <= 0 {
		return fmt.Errorf("fetch.headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Normalize.MinChars <= 0 {
		return fmt.Errorf("normalize.min_chars must be > 0")
	}
	if c.Summarize.MaxTokens <= 0 {
		return fmt.Errorf("summarize.max_tokens must be > 0")
	}
	if c.Summarize.TimeoutSeconds <= 0 {
		return fmt.Errorf("summarize.timeout_seconds must be > 0")
	}
	if c.Progress.QueueSize <= 0 || c.Progress.BatchSize <= 0 {
		return fmt.Errorf("progress.queue_size and progress.batch_size must be > 0")
	}
	return nil
}
