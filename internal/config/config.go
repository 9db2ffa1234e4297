package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	RequestTimeoutMs int64             `mapstructure:"request_timeout_ms"`
	RequestTimeout   time.Duration     `mapstructure:"-"`
	BaseURL          string            `mapstructure:"base_url"`
	DefaultHeaders   map[string]string `mapstructure:"default_headers"`
	RequestIDHeader  string            `mapstructure:"request_id_header"`
	AuthToken        string            `mapstructure:"auth_token"`
	BatchConcurrency int               `mapstructure:"batch_concurrency"`

	EndpointsFile  string `mapstructure:"endpoints_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	JournalType            string        `mapstructure:"journal_type"`
	JournalPath            string        `mapstructure:"journal_path"`
	JournalTTLSeconds      int64         `mapstructure:"journal_ttl_seconds"`
	JournalCleanupSeconds  int64         `mapstructure:"journal_cleanup_interval_seconds"`
	JournalTTL             time.Duration `mapstructure:"-"`
	JournalCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	v.SetConfigName("gateway")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	v.SetDefault("app_name", "samvad-request-gateway")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("request_timeout_ms", 10000)
	v.SetDefault("base_url", "")
	v.SetDefault("default_headers", map[string]string{"Content-Type": "application/json"})
	v.SetDefault("request_id_header", "X-Request-ID")
	v.SetDefault("auth_token", "")
	v.SetDefault("batch_concurrency", 4)
	v.SetDefault("endpoints_file", "./configs/endpoints.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("journal_type", "bbolt")
	v.SetDefault("journal_path", "./data/journal.db")
	v.SetDefault("journal_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("journal_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates raw values and derives durations.
func (c *Config) finalize() error {
	if c.RequestTimeoutMs <= 0 {
		return fmt.Errorf("invalid request_timeout_ms (must be positive milliseconds)")
	}
	c.RequestTimeout = time.Duration(c.RequestTimeoutMs) * time.Millisecond

	if c.JournalTTLSeconds <= 0 {
		return fmt.Errorf("invalid journal_ttl_seconds (must be positive seconds)")
	}
	if c.JournalCleanupSeconds <= 0 {
		return fmt.Errorf("invalid journal_cleanup_interval_seconds (must be positive seconds)")
	}
	c.JournalTTL = time.Duration(c.JournalTTLSeconds) * time.Second
	c.JournalCleanupInterval = time.Duration(c.JournalCleanupSeconds) * time.Second

	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("invalid batch_concurrency (must be positive)")
	}

	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	c.RequestIDHeader = strings.TrimSpace(c.RequestIDHeader)

	headers := make(map[string]string, len(c.DefaultHeaders))
	for k, v := range c.DefaultHeaders {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(v)
	}
	c.DefaultHeaders = headers
	return nil
}
