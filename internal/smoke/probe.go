package smoke

import (
	"errors"
	"net/url"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidURL = errors.New("invalid proxy URL")
	ErrUnhealthy  = errors.New("proxy health check failed")
)

// Probe is a single GET against the proxy.
type Probe struct {
	Name     string
	Path     string
	Required bool // a failing required probe fails the run
}

// Result is the outcome of one probe.
type Result struct {
	Probe   Probe
	Status  int
	Latency time.Duration
	Err     error
}

// OK reports whether the probe got a 2xx answer.
func (r Result) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}

// Probes lists the read-only routes to exercise. Orders are never placed.
func Probes(cfg Config) []Probe {
	probes := []Probe{
		{Name: "health", Path: "/api/health", Required: true},
		{Name: "exchange status", Path: "/api/kalshi/exchange/status"},
		{Name: "markets", Path: "/api/kalshi/markets?limit=1"},
	}
	if cfg.Ticker != "" {
		probes = append(probes, Probe{Name: "market " + cfg.Ticker, Path: "/api/kalshi/markets/" + url.PathEscape(cfg.Ticker)})
	}
	if cfg.Portfolio {
		probes = append(probes,
			Probe{Name: "balance", Path: "/api/kalshi/portfolio/balance"},
			Probe{Name: "positions", Path: "/api/kalshi/portfolio/positions?limit=1"},
			Probe{Name: "fills", Path: "/api/kalshi/portfolio/fills?limit=1"},
			Probe{Name: "orders", Path: "/api/kalshi/portfolio/orders?limit=1"},
		)
	}
	return probes
}
