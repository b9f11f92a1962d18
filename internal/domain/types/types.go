// Package types contains value types shared by the proxy layers.
package types

import (
	"encoding/json"
	"time"
)

// Error messages returned to clients. They match what the dashboard frontend expects.
const (
	MsgSignFailed  = "Failed to sign request"
	MsgFetchFailed = "Failed to fetch from Kalshi API"
)

// UpstreamResponse is the {status, data} pair a forwarded call produces.
// Data is always valid JSON.
type UpstreamResponse struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// ErrorBody is the {"error": "..."} payload used for locally generated failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponse builds an UpstreamResponse carrying an ErrorBody.
func ErrorResponse(status int, msg string) UpstreamResponse {
	data, err := json.Marshal(ErrorBody{Error: msg})
	if err != nil {
		data = []byte(`{"error":"internal error"}`)
	}
	return UpstreamResponse{Status: status, Data: data}
}

// Health is the /api/health payload.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

// NewHealth returns an "ok" health payload stamped with t.
func NewHealth(t time.Time) Health {
	return Health{Status: "ok", Timestamp: t.UTC().Format(isoMillis)}
}
