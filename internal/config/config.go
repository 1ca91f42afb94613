// Package config loads application settings from an optional YAML file and
// the process environment. Environment values win over the file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "AUTOBLOG_CONFIG"

// Config holds every non-database setting of the service
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    LLMConfig       `yaml:"search"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Queue     QueueConfig     `yaml:"queue"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Auth      AuthConfig      `yaml:"auth"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"ginMode"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level string `yaml:"level"`
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint
type LLMConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Model    string        `yaml:"model"`
	Retries  int           `yaml:"retries"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ScraperConfig configures page fetching
type ScraperConfig struct {
	UserAgent string        `yaml:"userAgent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// QueueConfig configures the background task workers
type QueueConfig struct {
	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"pollInterval"`
	Visibility   time.Duration `yaml:"visibility"`
}

// SchedulerConfig configures the cadence scheduler tick
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
	// How long a project stays claimed after a submission is enqueued
	SubmissionLockTTL time.Duration `yaml:"submissionLockTTL"`
}

// AuthConfig configures API tokens
type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080", GinMode: "debug"},
		Log:    LogConfig{Level: "info"},
		LLM: LLMConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Retries:  2,
			Timeout:  120 * time.Second,
		},
		Search: LLMConfig{
			Endpoint: "https://api.perplexity.ai/chat/completions",
			Model:    "sonar",
			Retries:  2,
			Timeout:  120 * time.Second,
		},
		Scraper: ScraperConfig{
			UserAgent: "autoblog/1.0 (+https://github.com/autoblog)",
			Timeout:   30 * time.Second,
		},
		Queue: QueueConfig{
			Workers:      4,
			PollInterval: 2 * time.Second,
			Visibility:   10 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Interval:          15 * time.Minute,
			SubmissionLockTTL: 24 * time.Hour,
		},
		Auth: AuthConfig{TokenTTL: 30 * 24 * time.Hour},
	}
}

// Load reads the YAML file named by AUTOBLOG_CONFIG (if any), then applies
// environment overrides and validates the result.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, eris.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, eris.Wrapf(err, "parse config %s", path)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.GinMode, "GIN_MODE")
	setString(&c.Log.Level, "LOG_LEVEL")

	setString(&c.LLM.Endpoint, "LLM_ENDPOINT")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.Model, "LLM_MODEL")
	setInt(&c.LLM.Retries, "LLM_RETRIES")

	setString(&c.Search.Endpoint, "COMPETITOR_LLM_ENDPOINT")
	setString(&c.Search.APIKey, "COMPETITOR_LLM_API_KEY")
	setString(&c.Search.Model, "COMPETITOR_LLM_MODEL")

	setString(&c.Scraper.UserAgent, "SCRAPER_USER_AGENT")
	setDuration(&c.Scraper.Timeout, "SCRAPER_TIMEOUT")

	setInt(&c.Queue.Workers, "QUEUE_WORKERS")
	setDuration(&c.Queue.PollInterval, "QUEUE_POLL_INTERVAL")

	setDuration(&c.Scheduler.Interval, "SCHEDULER_INTERVAL")
	setDuration(&c.Scheduler.SubmissionLockTTL, "SUBMISSION_LOCK_TTL")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
}

// Validate rejects settings the workers cannot run with
func (c Config) Validate() error {
	if c.Queue.Workers <= 0 {
		return eris.Errorf("queue workers must be positive, got %d", c.Queue.Workers)
	}
	if c.Queue.PollInterval <= 0 {
		return eris.New("queue poll interval must be positive")
	}
	if c.Scheduler.Interval <= 0 {
		return eris.New("scheduler interval must be positive")
	}
	if c.Scheduler.SubmissionLockTTL <= 0 {
		return eris.New("submission lock ttl must be positive")
	}
	if c.LLM.Retries < 0 {
		return eris.New("llm retries must not be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
