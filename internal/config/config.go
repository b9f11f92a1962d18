// Package config defines proxy configuration and how it is loaded.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and the environment.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the production Kalshi trade API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// Config contains process configuration.
type Config struct {
	// ServerPort is the HTTP listen port.
	ServerPort int `koanf:"server_port"`

	// APIKeyID identifies the Kalshi API key. Empty disables request signing.
	APIKeyID string `koanf:"api_key_id"`

	// PrivateKeyPath points at the PEM encoded RSA key. A leading ~ is expanded.
	PrivateKeyPath string `koanf:"private_key_path"`

	// BaseURL is the upstream API root.
	BaseURL string `koanf:"base_url"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile enables a rotated JSON log file when set.
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`
	LogMaxAgeDays int    `koanf:"log_max_age_days"`

	// UpstreamTimeoutMS bounds each upstream call; 0 leaves it unbounded.
	UpstreamTimeoutMS int `koanf:"upstream_timeout_ms"`

	// CachePrivateKey loads the key once instead of on every signature.
	CachePrivateKey bool `koanf:"cache_private_key"`

	// MaxBodyBytes caps inbound request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New returns a Config populated with defaults. The context is reserved for
// loaders that need it.
func New(_ context.Context) *Config {
	return &Config{
		ServerPort:        3001,
		PrivateKeyPath:    "~/.kalshi/private_key.pem",
		BaseURL:           DefaultBaseURL,
		LogLevel:          "info",
		LogMaxSizeMB:      50,
		LogMaxBackups:     3,
		LogMaxAgeDays:     14,
		UpstreamTimeoutMS: 0,
		CachePrivateKey:   false,
		MaxBodyBytes:      100 << 10,
	}
}

// Addr is the listen address derived from ServerPort.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.ServerPort)
}

// UpstreamTimeout converts UpstreamTimeoutMS to a duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: server_port %d out of range", ErrInvalidConfig, c.ServerPort)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: base_url %q must be an absolute http(s) URL", ErrInvalidConfig, c.BaseURL)
	}
	if c.UpstreamTimeoutMS < 0 {
		return fmt.Errorf("%w: upstream_timeout_ms must not be negative", ErrInvalidConfig)
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: max_body_bytes must not be negative", ErrInvalidConfig)
	}
	if c.LogMaxSizeMB < 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		return fmt.Errorf("%w: log rotation settings must not be negative", ErrInvalidConfig)
	}
	return nil
}
