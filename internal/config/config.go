package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Index     IndexConfig     `yaml:"index"`
	Reddit    RedditConfig    `yaml:"reddit"`
	AI        AIConfig        `yaml:"ai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Cycle     CycleConfig     `yaml:"cycle"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	// AuthDisabled skips operator token auth (development only)
	AuthDisabled bool `yaml:"auth_disabled"`
}

// DatabaseConfig contains sqlite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig contains settings for the bbolt seen-post index
type IndexConfig struct {
	Path string `yaml:"path"`
}

// RedditConfig contains Reddit API client settings
type RedditConfig struct {
	BaseURL   string        `yaml:"base_url"`
	TokenURL  string        `yaml:"token_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// AIConfig contains model client settings
type AIConfig struct {
	DefaultModel string        `yaml:"default_model"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RateLimitConfig contains posting ceilings per platform. Counts are derived
// from posted outcomes in the trailing window, not a separate counter.
type RateLimitConfig struct {
	Window  time.Duration  `yaml:"window"`
	PerHour map[string]int `yaml:"per_hour"` // platform -> hourly ceiling
}

// SchedulerConfig contains the cycle poll worker settings
type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Concurrency  int           `yaml:"concurrency"`
}

// CycleConfig bounds one orchestrator cycle
type CycleConfig struct {
	GenerationBatchSize int           `yaml:"generation_batch_size"`
	PostingBatchSize    int           `yaml:"posting_batch_size"`
	CallTimeout         time.Duration `yaml:"call_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ListenAddr    string        `yaml:"listen_addr"`
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	AllowedIPs    []string      `yaml:"allowed_ips"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	cfg.applyEnv()
	return cfg
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 30 * time.Second
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.Database.Path == "" {
		c.Database.Path = "/var/lib/soapbox/soapbox.db"
	}
	if c.Index.Path == "" {
		c.Index.Path = "/var/lib/soapbox/seen.db"
	}

	if c.Reddit.BaseURL == "" {
		c.Reddit.BaseURL = "https://oauth.reddit.com"
	}
	if c.Reddit.TokenURL == "" {
		c.Reddit.TokenURL = "https://www.reddit.com/api/v1/access_token"
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "soapbox/1.0"
	}
	if c.Reddit.Timeout == 0 {
		c.Reddit.Timeout = 30 * time.Second
	}

	if c.AI.DefaultModel == "" {
		c.AI.DefaultModel = "gemini-2.5-flash"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30 * time.Second
	}

	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Hour
	}
	if c.RateLimit.PerHour == nil {
		c.RateLimit.PerHour = map[string]int{
			"reddit":   10,
			"linkedin": 5,
		}
	}

	if c.Scheduler.PollInterval == 0 {
		c.Scheduler.PollInterval = 30 * time.Second
	}
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = 4
	}

	if c.Cycle.GenerationBatchSize == 0 {
		c.Cycle.GenerationBatchSize = 5
	}
	if c.Cycle.PostingBatchSize == 0 {
		c.Cycle.PostingBatchSize = 5
	}
	if c.Cycle.CallTimeout == 0 {
		c.Cycle.CallTimeout = 30 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.FlushInterval == 0 {
		c.Metrics.FlushInterval = 10 * time.Second
	}
}

// applyEnv applies environment variable overrides for deploy-time settings.
func (c *Config) applyEnv() {
	if v := os.Getenv("SOAPBOX_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SOAPBOX_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("SOAPBOX_LISTEN_ADDR"); v != "" {
		c.API.ListenAddr = v
	}
	if v := os.Getenv("SOAPBOX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Index.Path == "" {
		return fmt.Errorf("index.path is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}

	for platform, limit := range c.RateLimit.PerHour {
		if limit < 0 {
			return fmt.Errorf("rate_limit.per_hour[%s] must be >= 0", platform)
		}
	}

	if c.Cycle.GenerationBatchSize < 1 {
		return fmt.Errorf("cycle.generation_batch_size must be >= 1")
	}
	if c.Cycle.PostingBatchSize < 1 {
		return fmt.Errorf("cycle.posting_batch_size must be >= 1")
	}

	return nil
}
