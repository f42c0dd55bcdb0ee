// Package config loads service and CLI settings from an optional YAML file
// overlaid by environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vesselpdp/internal/logging"
)

type Config struct {
	Port        string        `yaml:"port"`
	DatabaseURL string        `yaml:"databaseUrl"`
	SQLitePath  string        `yaml:"sqlitePath"`
	RedisURL    string        `yaml:"redisUrl"`
	RateRPS     float64       `yaml:"rateRps"`
	RateBurst   int           `yaml:"rateBurst"`
	CacheTTL    time.Duration `yaml:"cacheTtl"`
	LogLevel    string        `yaml:"logLevel"`
	LogFormat   string        `yaml:"logFormat"`

	// MaxInstanceBytes caps uploaded instance files.
	MaxInstanceBytes int64 `yaml:"maxInstanceBytes"`
	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// Webhook receivers for evaluation.completed events.
	WebhookURLs        []string `yaml:"webhookUrls"`
	WebhookSecret      string   `yaml:"webhookSecret"`
	WebhookMaxAttempts int      `yaml:"webhookMaxAttempts"`
}

func Default() Config {
	return Config{
		Port:             "8080",
		RateRPS:          20,
		RateBurst:        40,
		CacheTTL:         10 * time.Minute,
		LogLevel:         "info",
		LogFormat:        "text",
		MaxInstanceBytes: 64 << 20,
		ShutdownTimeout:  10 * time.Second,

		WebhookMaxAttempts: 10,
	}
}

// Load returns Default overlaid by the YAML file at path (skipped when path
// is empty) and then by the environment as seen through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("SQLITE_PATH", &c.SQLitePath)
	str("REDIS_URL", &c.RedisURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("WEBHOOK_SECRET", &c.WebhookSecret)
	if v := getenv("WEBHOOK_URLS"); v != "" {
		c.WebhookURLs = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.WebhookURLs = append(c.WebhookURLs, u)
			}
		}
	}
	if v := getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS: %w", err)
		}
		c.WebhookMaxAttempts = n
	}

	if v := getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.RateRPS = f
	}
	if v := getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.RateBurst = n
	}
	if v := getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.CacheTTL = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port %q is not a number", c.Port)
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		return errors.New("set only one of DATABASE_URL and SQLITE_PATH")
	}
	if c.RateRPS < 0 || c.RateBurst < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.RateRPS > 0 && c.RateBurst == 0 {
		return errors.New("rate burst must be positive when a rate is set")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	if c.MaxInstanceBytes <= 0 {
		return errors.New("max instance bytes must be positive")
	}
	if c.WebhookMaxAttempts <= 0 {
		return errors.New("webhook max attempts must be positive")
	}
	for _, u := range c.WebhookURLs {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("invalid webhook url %q", u)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	return nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }
