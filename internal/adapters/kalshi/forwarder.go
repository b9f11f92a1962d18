// Package kalshi forwards requests to the Kalshi trading API, signing them
// when credentials are configured.
package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/mentionproxy/internal/domain/signing"
	"github.com/okian/mentionproxy/internal/domain/types"
	"github.com/okian/mentionproxy/pkg/logger"
	"github.com/okian/mentionproxy/pkg/metrics"
)

// Authentication headers expected by the Kalshi API.
const (
	HeaderAccessKey       = "KALSHI-ACCESS-KEY"
	HeaderAccessSignature = "KALSHI-ACCESS-SIGNATURE"
	HeaderAccessTimestamp = "KALSHI-ACCESS-TIMESTAMP"
)

// DefaultBaseURL is the production trade API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// HTTPDoer is the subset of *http.Client the forwarder needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config is the explicit forwarder configuration.
type Config struct {
	// BaseURL is the upstream API root, e.g. DefaultBaseURL.
	BaseURL string
	// APIKeyID enables signed requests when non-empty.
	APIKeyID string
	// Timeout bounds each upstream call. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

// Stats is a snapshot of forwarder counters.
type Stats struct {
	Forwarded        int64 `json:"forwarded"`
	SignFailures     int64 `json:"sign_failures"`
	UpstreamFailures int64 `json:"upstream_failures"`
}

// Forwarder relays calls to the upstream API. It is safe for concurrent use.
type Forwarder struct {
	base     *url.URL
	baseURL  string
	apiKeyID string
	timeout  time.Duration
	signer   signing.Signer
	client   HTTPDoer
	now      func() time.Time
	logger   logger.Logger

	forwarded        atomic.Int64
	signFailures     atomic.Int64
	upstreamFailures atomic.Int64
}

// NewForwarder validates cfg and builds a Forwarder. signer may be nil when
// cfg.APIKeyID is empty.
func NewForwarder(cfg Config, signer signing.Signer, opts ...Option) (*Forwarder, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	base, err := url.Parse(raw)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	if cfg.APIKeyID != "" && signer == nil {
		return nil, fmt.Errorf("%w: api key id set without a signer", ErrSign)
	}

	f := &Forwarder{
		base:     base,
		baseURL:  raw,
		apiKeyID: cfg.APIKeyID,
		timeout:  cfg.Timeout,
		signer:   signer,
		client:   http.DefaultClient,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Named("forwarder")
	}
	return f, nil
}

// Authenticated reports whether requests carry signing headers.
func (f *Forwarder) Authenticated() bool { return f.apiKeyID != "" }

// BaseURL returns the normalized upstream root.
func (f *Forwarder) BaseURL() string { return f.baseURL }

// Stats returns the current counters.
func (f *Forwarder) Stats() Stats {
	return Stats{
		Forwarded:        f.forwarded.Load(),
		SignFailures:     f.signFailures.Load(),
		UpstreamFailures: f.upstreamFailures.Load(),
	}
}

// Forward issues method endpoint against the upstream API and returns its
// status and JSON body unchanged. Local failures are folded into a 500 with
// an error body; non-2xx upstream answers are not failures.
func (f *Forwarder) Forward(ctx context.Context, method, endpoint string, body []byte) types.UpstreamResponse {
	target := f.baseURL + endpoint
	label := metricEndpoint(endpoint)

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	if f.apiKeyID != "" {
		timestamp := strconv.FormatInt(f.now().UnixMilli(), 10)
		signature, err := f.signer.Sign(ctx, method, f.signingPath(endpoint), timestamp)
		if err != nil {
			f.signFailures.Add(1)
			metrics.RecordErrorByComponent("forwarder", "sign")
			f.logger.Error(ctx, "error signing request",
				logger.String("method", method),
				logger.String("endpoint", endpoint),
				logger.Error(fmt.Errorf("%w: %w", ErrSign, err)),
			)
			return types.ErrorResponse(http.StatusInternalServerError, types.MsgSignFailed)
		}
		header.Set(HeaderAccessKey, f.apiKeyID)
		header.Set(HeaderAccessSignature, signature)
		header.Set(HeaderAccessTimestamp, timestamp)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return f.fail(ctx, "request", method, endpoint, err)
	}
	req.Header = header

	start := time.Now()
	metrics.IncUpstreamInFlight()
	resp, err := f.client.Do(req)
	metrics.DecUpstreamInFlight()
	if err != nil {
		return f.fail(ctx, "transport", method, endpoint, fmt.Errorf("%w: %w", ErrTransport, err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	metrics.RecordUpstreamLatency(label, method, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return f.fail(ctx, "read", method, endpoint, fmt.Errorf("%w: %w", ErrReadBody, err))
	}
	if !json.Valid(data) {
		return f.fail(ctx, "decode", method, endpoint, fmt.Errorf("%w: status %d", ErrNotJSON, resp.StatusCode))
	}

	f.forwarded.Add(1)
	metrics.RecordUpstreamRequest(label, method, strconv.Itoa(resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		f.logger.Debug(ctx, "upstream returned error status",
			logger.String("method", method),
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
		)
	}
	return types.UpstreamResponse{Status: resp.StatusCode, Data: data}
}

// fail records and logs an upstream failure and returns the uniform 500.
func (f *Forwarder) fail(ctx context.Context, reason, method, endpoint string, err error) types.UpstreamResponse {
	f.upstreamFailures.Add(1)
	metrics.RecordUpstreamFailure(reason)
	metrics.RecordErrorByComponent("forwarder", reason)
	f.logger.Error(ctx, "error calling Kalshi API",
		logger.String("method", method),
		logger.String("endpoint", endpoint),
		logger.Error(err),
	)
	return types.ErrorResponse(http.StatusInternalServerError, types.MsgFetchFailed)
}

// signingPath is the absolute path that gets signed: the base URL path plus
// the endpoint, without any query string.
func (f *Forwarder) signingPath(endpoint string) string {
	path, _, _ := strings.Cut(endpoint, "?")
	return f.base.Path + path
}

// metricEndpoint bounds label cardinality: queries are dropped and market
// tickers collapse to a placeholder.
func metricEndpoint(endpoint string) string {
	path, _, _ := strings.Cut(endpoint, "?")
	if strings.HasPrefix(path, "/markets/") {
		return "/markets/{ticker}"
	}
	return path
}
