package kalshi

import (
	"time"

	"github.com/okian/mentionproxy/pkg/logger"
)

// Option applies a configuration option to the Forwarder.
type Option func(*Forwarder)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(f *Forwarder) {
		if client != nil {
			f.client = client
		}
	}
}

// WithClock sets the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Forwarder) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger sets a custom logger for the forwarder.
func WithLogger(l logger.Logger) Option {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}
