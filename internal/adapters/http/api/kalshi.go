package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/mentionproxy/pkg/logger"
	"github.com/okian/mentionproxy/pkg/metrics"
)

// KalshiHandler maps /api/kalshi/* routes onto upstream endpoints.
type KalshiHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewKalshiHandler creates a new proxy handler.
func NewKalshiHandler(deps Dependencies, maxBodyBytes int64, log logger.Logger) *KalshiHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	if log == nil {
		log = logger.Named("kalshi_api")
	}
	return &KalshiHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: log}
}

// HandleExchangeStatus handles GET /api/kalshi/exchange/status.
func (h *KalshiHandler) HandleExchangeStatus(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, "/exchange/status", nil)
}

// HandleBalance handles GET /api/kalshi/portfolio/balance.
func (h *KalshiHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, "/portfolio/balance", nil)
}

// HandlePositions handles GET /api/kalshi/portfolio/positions.
func (h *KalshiHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, withQuery("/portfolio/positions", r), nil)
}

// HandleFills handles GET /api/kalshi/portfolio/fills.
func (h *KalshiHandler) HandleFills(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, withQuery("/portfolio/fills", r), nil)
}

// HandleMarkets handles GET /api/kalshi/markets.
func (h *KalshiHandler) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, withQuery("/markets", r), nil)
}

// HandleMarket handles GET /api/kalshi/markets/{ticker}.
func (h *KalshiHandler) HandleMarket(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_market"
	ticker := r.PathValue("ticker")
	if strings.TrimSpace(ticker) == "" {
		h.reject(w, r, http.StatusBadRequest, NewKind(op, ErrMissingTicker))
		return
	}
	h.forward(w, r, http.MethodGet, "/markets/"+url.PathEscape(ticker), nil)
}

// HandleListOrders handles GET /api/kalshi/portfolio/orders.
func (h *KalshiHandler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, withQuery("/portfolio/orders", r), nil)
}

// HandleCreateOrder handles POST /api/kalshi/portfolio/orders. The JSON body
// is validated and compacted, then sent upstream unchanged otherwise.
func (h *KalshiHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_order"
	body, err := readJSONBody(w, r, h.maxBodyBytes)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.reject(w, r, status, Wrap(op, err))
		return
	}
	h.forward(w, r, http.MethodPost, "/portfolio/orders", body)
}

func (h *KalshiHandler) forward(w http.ResponseWriter, r *http.Request, method, endpoint string, body []byte) {
	writeUpstream(w, h.deps.Forward(r.Context(), method, endpoint, body))
}

func (h *KalshiHandler) reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	metrics.RecordErrorByComponent("api", getErrorType(status))
	h.logger.Debug(r.Context(), "rejected request",
		logger.String("path", r.URL.Path),
		logger.String("requestID", RequestIDFromContext(r.Context())),
		logger.Error(err),
	)
	msg := ErrBadRequest.Error()
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		msg = ErrBodyTooLarge.Error()
	case errors.Is(err, ErrInvalidJSONBody):
		msg = ErrInvalidJSONBody.Error()
	case errors.Is(err, ErrMissingTicker):
		msg = ErrMissingTicker.Error()
	}
	writeError(w, status, msg)
}

// withQuery appends the raw inbound query, if any, to endpoint.
func withQuery(endpoint string, r *http.Request) string {
	if r.URL.RawQuery == "" {
		return endpoint
	}
	return endpoint + "?" + r.URL.RawQuery
}

// readJSONBody reads at most limit bytes and returns the compacted JSON
// object or array. An empty body becomes "{}".
func readJSONBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, WrapKind("read_body", ErrBadRequest, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	if raw[0] != '{' && raw[0] != '[' {
		return nil, ErrInvalidJSONBody
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, WrapKind("decode_body", ErrInvalidJSONBody, err)
	}
	return buf.Bytes(), nil
}
