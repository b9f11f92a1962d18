// Package smoke probes a running proxy's read-only endpoints.
package smoke

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults for Config.
const (
	DefaultBaseURL     = "http://localhost:3001"
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 4
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL     string        // Base URL of the proxy
	Timeout     time.Duration // Per-request timeout
	Concurrency int           // Maximum probes in flight
	Ticker      string        // Optional market ticker to look up
	Portfolio   bool          // Also probe the signed portfolio routes
}

// normalize fills defaults and validates the base URL.
func (c Config) normalize() (Config, error) {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return c, fmt.Errorf("%w: %q", ErrInvalidURL, c.BaseURL)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c, nil
}
