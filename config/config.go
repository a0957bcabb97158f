// Package config assembles runtime settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Mail     MailConfig     `yaml:"mail"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig is optional; an empty URL disables rate limiting.
type RedisConfig struct {
	URL        string        `yaml:"url"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type OutboxConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

type MailConfig struct {
	From string `yaml:"from"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: ":8080", RequestTimeout: 15 * time.Second},
		Database: DatabaseConfig{MaxConns: 10},
		Redis:    RedisConfig{RateLimit: 60, RateWindow: time.Minute},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Outbox:   OutboxConfig{PollInterval: time.Second, BatchSize: 10, MaxAttempts: 5, RetryDelay: 30 * time.Second},
		Mail:     MailConfig{From: "no-reply@jobpazar.local"},
	}
}

// Load builds the configuration. path may be empty; a path that does not
// exist is ignored so deployments can rely on the environment alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Mail.From = getEnv("MAIL_FROM", cfg.Mail.From)

	var err error
	if cfg.HTTP.RequestTimeout, err = getEnvAsDuration("HTTP_REQUEST_TIMEOUT", cfg.HTTP.RequestTimeout); err != nil {
		return err
	}
	maxConns, err := getEnvAsInt("DB_MAX_CONNS", int(cfg.Database.MaxConns))
	if err != nil {
		return err
	}
	cfg.Database.MaxConns = int32(maxConns)
	if cfg.Redis.RateLimit, err = getEnvAsInt("RATE_LIMIT", cfg.Redis.RateLimit); err != nil {
		return err
	}
	if cfg.Redis.RateWindow, err = getEnvAsDuration("RATE_WINDOW", cfg.Redis.RateWindow); err != nil {
		return err
	}
	if cfg.Auth.TokenTTL, err = getEnvAsDuration("JWT_TTL", cfg.Auth.TokenTTL); err != nil {
		return err
	}
	if cfg.Outbox.PollInterval, err = getEnvAsDuration("OUTBOX_POLL_INTERVAL", cfg.Outbox.PollInterval); err != nil {
		return err
	}
	if cfg.Outbox.BatchSize, err = getEnvAsInt("OUTBOX_BATCH_SIZE", cfg.Outbox.BatchSize); err != nil {
		return err
	}
	if cfg.Outbox.MaxAttempts, err = getEnvAsInt("OUTBOX_MAX_ATTEMPTS", cfg.Outbox.MaxAttempts); err != nil {
		return err
	}
	if cfg.Outbox.RetryDelay, err = getEnvAsDuration("OUTBOX_RETRY_DELAY", cfg.Outbox.RetryDelay); err != nil {
		return err
	}
	return nil
}

func validate(cfg *Config) error {
	required := []struct {
		field string
		value string
	}{
		{"DATABASE_URL", cfg.Database.URL},
		{"JWT_SECRET", cfg.Auth.JWTSecret},
		{"HTTP_ADDR", cfg.HTTP.Addr},
	}
	for _, r := range required {
		if r.value == "" {
			return newConfigError(r.field, "must not be empty")
		}
	}

	switch {
	case cfg.Database.MaxConns <= 0:
		return newConfigError("DB_MAX_CONNS", "must be positive")
	case cfg.HTTP.RequestTimeout <= 0:
		return newConfigError("HTTP_REQUEST_TIMEOUT", "must be positive")
	case cfg.Auth.TokenTTL <= 0:
		return newConfigError("JWT_TTL", "must be positive")
	case cfg.Outbox.PollInterval <= 0:
		return newConfigError("OUTBOX_POLL_INTERVAL", "must be positive")
	case cfg.Outbox.BatchSize <= 0:
		return newConfigError("OUTBOX_BATCH_SIZE", "must be positive")
	case cfg.Outbox.MaxAttempts <= 0:
		return newConfigError("OUTBOX_MAX_ATTEMPTS", "must be positive")
	case cfg.Outbox.RetryDelay <= 0:
		return newConfigError("OUTBOX_RETRY_DELAY", "must be positive")
	case cfg.Redis.URL != "" && (cfg.Redis.RateLimit <= 0 || cfg.Redis.RateWindow <= 0):
		return newConfigError("RATE_LIMIT", "rate limit and window must be positive when REDIS_URL is set")
	}
	return nil
}

// ConfigError reports an invalid or missing setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return "config: " + e.Field + " " + e.Reason
}

func newConfigError(field, reason string) ConfigError {
	return ConfigError{Field: field, Reason: reason}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, newConfigError(key, fmt.Sprintf("not an integer: %q", value))
	}
	return n, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, newConfigError(key, fmt.Sprintf("not a duration: %q", value))
	}
	return d, nil
}
