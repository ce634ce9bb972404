package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvAddr          = "EXAMPLE_SERVER_ADDR"
	EnvToken         = "EXAMPLE_AUTH_TOKEN"
	EnvJWTSecret     = "EXAMPLE_AUTH_JWT_SECRET"
	EnvCookieSecret  = "EXAMPLE_COOKIE_SECRET"
	EnvRateLimit     = "EXAMPLE_RATELIMIT_RATE"
	EnvRateBurst     = "EXAMPLE_RATELIMIT_BURST"
	EnvLogLevel      = "EXAMPLE_LOG_LEVEL"
	EnvLogFormat     = "EXAMPLE_LOG_FORMAT"
	EnvMetricsEnable = "EXAMPLE_METRICS_ENABLED"
)

// Config is the example server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Cookie    CookieConfig    `yaml:"cookie"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the listener.
type ServerConfig struct {
	Addr    string        `yaml:"addr"`    // default: localhost:4000
	Timeout time.Duration `yaml:"timeout"` // per-request deadline (default: 10s)
}

// AuthConfig configures the admin namespace credentials.
type AuthConfig struct {
	Token     string `yaml:"token"`      // plain admin token
	TokenHash string `yaml:"token_hash"` // bcrypt hash, preferred over token
	JWTSecret string `yaml:"jwt_secret"` // enables /api/v1/me when set
}

// CookieConfig configures session cookie signing.
type CookieConfig struct {
	Secret string `yaml:"secret"`
}

// RateLimitConfig configures the per-client request rate.
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate"`  // requests per second, 0 disables
	Burst int     `yaml:"burst"` // default: 2x rate
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format"` // json or console (default: json)
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

// LoadConfig reads the YAML file at path, if it exists, then applies
// environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvCookieSecret); v != "" {
		cfg.Cookie.Secret = v
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRateLimit, err)
		}
		cfg.RateLimit.Rate = f
	}
	if v := os.Getenv(EnvRateBurst); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRateBurst, err)
		}
		cfg.RateLimit.Burst = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvMetricsEnable); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMetricsEnable, err)
		}
		cfg.Metrics.Enabled = b
	}
	return nil
}

// defaultCookieSecret signs session cookies when cookie.secret is unset.
// Deployments should set their own.
const defaultCookieSecret = "secretsecretsecretsecretsecretsecretsecret"

func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "localhost:4000"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 10 * time.Second
	}
	if cfg.Auth.Token == "" && cfg.Auth.TokenHash == "" {
		cfg.Auth.Token = "password1"
	}
	if cfg.Cookie.Secret == "" {
		cfg.Cookie.Secret = defaultCookieSecret
	}
	if cfg.RateLimit.Rate > 0 && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = max(1, int(2*cfg.RateLimit.Rate))
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	var errs []error
	if len(cfg.Cookie.Secret) > 0 && len(cfg.Cookie.Secret) < 32 {
		errs = append(errs, errors.New("cookie.secret must be at least 32 bytes"))
	}
	if cfg.RateLimit.Rate < 0 {
		errs = append(errs, errors.New("ratelimit.rate must not be negative"))
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", cfg.Log.Format))
	}
	return errors.Join(errs...)
}
