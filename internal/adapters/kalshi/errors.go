package kalshi

import "errors"

// Sentinel kinds for forwarder failures. They are logged, never returned to
// callers: Forward always answers with an UpstreamResponse.
var (
	ErrInvalidBaseURL = errors.New("invalid Kalshi base URL")
	ErrSign           = errors.New("sign request")
	ErrTransport      = errors.New("upstream transport")
	ErrReadBody       = errors.New("read upstream body")
	ErrNotJSON        = errors.New("upstream body is not JSON")
)
