// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/mentionproxy/internal/domain/types"
	"github.com/okian/mentionproxy/pkg/logger"
)

// DefaultMaxBodyBytes caps inbound JSON bodies.
const DefaultMaxBodyBytes int64 = 100 << 10

// Dependencies required by HTTP handlers. Using an interface keeps the
// handler layer loosely coupled to the forwarding implementation.
type Dependencies interface {
	// Forward relays method endpoint (path plus optional query) upstream.
	Forward(ctx context.Context, method, endpoint string, body []byte) types.UpstreamResponse
}

// Server wires HTTP routes for the proxy API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	metricsHandler *MetricsHandler
	kalshiHandler  *KalshiHandler
	logger         logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxBodyBytes int64
	now          func() time.Time
	logger       logger.Logger
}

// WithMaxBodyBytes caps POST bodies. Zero or negative keeps the default.
func WithMaxBodyBytes(n int64) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithClock sets the time source used by the health endpoint.
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for access logs.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{maxBodyBytes: DefaultMaxBodyBytes, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("http")
	}
	return &Server{
		healthHandler:  NewHealthHandler(o.now),
		statsHandler:   NewStatsHandler(statsProvider),
		metricsHandler: NewMetricsHandler(),
		kalshiHandler:  NewKalshiHandler(deps, o.maxBodyBytes, o.logger),
		logger:         o.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("GET /api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /metrics", s.metricsHandler.HandleMetrics)

	k := s.kalshiHandler
	mux.HandleFunc("GET /api/kalshi/exchange/status", MetricsMiddleware(k.HandleExchangeStatus, "exchange_status"))
	mux.HandleFunc("GET /api/kalshi/portfolio/balance", MetricsMiddleware(k.HandleBalance, "portfolio_balance"))
	mux.HandleFunc("GET /api/kalshi/portfolio/positions", MetricsMiddleware(k.HandlePositions, "portfolio_positions"))
	mux.HandleFunc("GET /api/kalshi/portfolio/fills", MetricsMiddleware(k.HandleFills, "portfolio_fills"))
	mux.HandleFunc("GET /api/kalshi/markets", MetricsMiddleware(k.HandleMarkets, "markets"))
	mux.HandleFunc("GET /api/kalshi/markets/{ticker}", MetricsMiddleware(k.HandleMarket, "market"))
	mux.HandleFunc("POST /api/kalshi/portfolio/orders", MetricsMiddleware(k.HandleCreateOrder, "orders_create"))
	mux.HandleFunc("GET /api/kalshi/portfolio/orders", MetricsMiddleware(k.HandleListOrders, "orders_list"))
}

// Handler wraps h with request id, access logging and CORS.
func (s *Server) Handler(h http.Handler) http.Handler {
	return RequestIDMiddleware(AccessLogMiddleware(s.logger)(CORSMiddleware(h)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeUpstream relays an UpstreamResponse. Data is already JSON.
func writeUpstream(w http.ResponseWriter, resp types.UpstreamResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorBody{Error: msg})
}
