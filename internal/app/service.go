// Package service wires the signer, key provider and forwarder behind the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/mentionproxy/internal/adapters/kalshi"
	"github.com/okian/mentionproxy/internal/domain/signing"
	"github.com/okian/mentionproxy/internal/domain/types"
	"github.com/okian/mentionproxy/pkg/logger"
	"github.com/okian/mentionproxy/pkg/metrics"
)

// MsgNotStarted is returned by Forward before Start succeeds.
const MsgNotStarted = "Proxy not started"

// ErrStart wraps failures while building the forwarding pipeline.
var ErrStart = errors.New("start service")

// Service implements the API dependencies for the Kalshi proxy.
type Service struct {
	mu sync.RWMutex

	// Core components
	keys      signing.KeyProvider
	forwarder *kalshi.Forwarder

	// Configuration
	baseURL         string
	apiKeyID        string
	privateKeyPath  string
	upstreamTimeout time.Duration
	cacheKey        bool
	client          kalshi.HTTPDoer

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBaseURL sets the upstream API root.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithAPIKeyID enables request signing under the given key id.
func WithAPIKeyID(id string) Option {
	return func(s *Service) {
		s.apiKeyID = id
	}
}

// WithPrivateKeyPath sets the PEM key location. A leading ~ is expanded on Start.
func WithPrivateKeyPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.privateKeyPath = path
		}
	}
}

// WithUpstreamTimeout bounds each upstream call. Zero disables the bound.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.upstreamTimeout = d
		}
	}
}

// WithCachedKey loads the private key once instead of per signature.
func WithCachedKey(enabled bool) Option {
	return func(s *Service) {
		s.cacheKey = enabled
	}
}

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(client kalshi.HTTPDoer) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		baseURL:        kalshi.DefaultBaseURL,
		privateKeyPath: "~/.kalshi/private_key.pem",
		logger:         nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the key provider, signer and forwarder.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting Kalshi proxy service...")

	var signer signing.Signer
	if s.apiKeyID != "" {
		path, err := signing.ExpandHome(s.privateKeyPath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStart, err)
		}
		var keys signing.KeyProvider = signing.NewFileKeyProvider(path)
		if s.cacheKey {
			keys = signing.NewCachedKeyProvider(keys)
		}
		s.keys = keys
		signer = signing.NewRSASigner(keys)

		// The key is read again on each request; a missing file only makes
		// signed calls fail, so it is not fatal here.
		if _, err := keys.PrivateKey(ctx); err != nil {
			s.logger.Warn(ctx, "private key is not loadable, signed requests will fail",
				logger.String("path", path),
				logger.Error(err),
			)
			metrics.RecordErrorByComponent("service", "key_unavailable")
		}
	} else {
		s.logger.Warn(ctx, "KALSHI_API_KEY_ID not set, forwarding unauthenticated requests")
	}

	opts := []kalshi.Option{kalshi.WithLogger(s.logger.Named("forwarder"))}
	if s.client != nil {
		opts = append(opts, kalshi.WithHTTPClient(s.client))
	}
	fwd, err := kalshi.NewForwarder(kalshi.Config{
		BaseURL:  s.baseURL,
		APIKeyID: s.apiKeyID,
		Timeout:  s.upstreamTimeout,
	}, signer, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	s.forwarder = fwd

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "Kalshi proxy service started",
		logger.String("baseURL", fwd.BaseURL()),
		logger.Bool("authenticated", fwd.Authenticated()),
		logger.Bool("cachedKey", s.cacheKey),
		logger.Duration("upstreamTimeout", s.upstreamTimeout),
	)

	return nil
}

// Stop marks the service as stopped. In-flight Forward calls finish normally.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "Kalshi proxy service stopped")
}

// Forward relays a call to the upstream API. See kalshi.Forwarder.Forward.
func (s *Service) Forward(ctx context.Context, method, endpoint string, body []byte) types.UpstreamResponse {
	s.mu.RLock()
	fwd, started := s.forwarder, s.started
	s.mu.RUnlock()

	if !started {
		return types.ErrorResponse(http.StatusServiceUnavailable, MsgNotStarted)
	}
	return fwd.Forward(ctx, method, endpoint, body)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"authenticated": s.apiKeyID != "",
		"baseURL":       s.baseURL,
		"cachedKey":     s.cacheKey,
	}

	if s.started {
		fs := s.forwarder.Stats()
		stats["forwarded"] = fs.Forwarded
		stats["signFailures"] = fs.SignFailures
		stats["upstreamFailures"] = fs.UpstreamFailures
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}

	return stats
}
