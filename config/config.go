package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration. Every field has a workable
// default, so the service starts with no config file at all; the YAML file
// and environment overrides layer on top.
type Config struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Database  DatabaseConfig  `yaml:"database"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Digest    DigestConfig    `yaml:"digest"`
	Log       LogConfig       `yaml:"log"`
	Stats     StatsConfig     `yaml:"stats"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type AnalyzerConfig struct {
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs"`
	CacheTTLMinutes  int    `yaml:"cache_ttl_minutes"`
	CacheMaxEntries  int    `yaml:"cache_max_entries"`
	UserAgent        string `yaml:"user_agent"`
}

type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type DigestConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Weekday    string   `yaml:"weekday"`
	Time       string   `yaml:"time"`
	Timezone   string   `yaml:"timezone"`
	Recipients []string `yaml:"recipients"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type StatsConfig struct {
	Path string `yaml:"path"`
}

// digestTimeRegex validates HH:MM with proper ranges.
var digestTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result. A missing file is not an
// error: the service can run entirely on defaults and environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	case os.IsNotExist(err):
		// Optional file; environment carries the rest.
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("SEARCHPULSE_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8082"
	}
	if cfg.GinMode == "" {
		cfg.GinMode = "release"
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 2
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 5
	}
	if cfg.Analyzer.FetchTimeoutSecs == 0 {
		cfg.Analyzer.FetchTimeoutSecs = 15
	}
	if cfg.Analyzer.CacheTTLMinutes == 0 {
		cfg.Analyzer.CacheTTLMinutes = 30
	}
	if cfg.Analyzer.CacheMaxEntries == 0 {
		cfg.Analyzer.CacheMaxEntries = 1000
	}
	if cfg.Analyzer.UserAgent == "" {
		cfg.Analyzer.UserAgent = "SearchPulse/1.0 (+https://searchpulse.dev/bot)"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.0-flash-lite"
	}
	if cfg.Gemini.TimeoutSecs == 0 {
		cfg.Gemini.TimeoutSecs = 20
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./searchpulse.db"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.Digest.Weekday == "" {
		cfg.Digest.Weekday = "monday"
	}
	if cfg.Digest.Time == "" {
		cfg.Digest.Time = "08:00"
	}
	if cfg.Digest.Timezone == "" {
		cfg.Digest.Timezone = "UTC"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}
	if cfg.Stats.Path == "" {
		cfg.Stats.Path = "./data"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.GinMode = mode
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
	if dbPath := os.Getenv("SEARCHPULSE_DB"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		cfg.SMTP.Password = password
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func validate(cfg *Config) error {
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("gin_mode must be debug, release or test, got %q", cfg.GinMode)
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	if cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive")
	}
	if !digestTimeRegex.MatchString(cfg.Digest.Time) {
		return fmt.Errorf("digest.time must be in HH:MM format (00:00-23:59), got %q", cfg.Digest.Time)
	}
	if _, ok := weekdays[strings.ToLower(cfg.Digest.Weekday)]; !ok {
		return fmt.Errorf("digest.weekday must be a weekday name, got %q", cfg.Digest.Weekday)
	}
	if _, err := time.LoadLocation(cfg.Digest.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Digest.Timezone, err)
	}
	if cfg.Digest.Enabled && cfg.SMTP.Host == "" {
		return fmt.Errorf("digest.enabled requires smtp.host")
	}
	if cfg.Digest.Enabled && len(cfg.Digest.Recipients) == 0 {
		return fmt.Errorf("digest.enabled requires at least one recipient")
	}
	return nil
}

// DigestWeekday resolves the configured weekday name. Validation guarantees
// the lookup succeeds for a loaded config.
func (c *Config) DigestWeekday() time.Weekday {
	return weekdays[strings.ToLower(c.Digest.Weekday)]
}
