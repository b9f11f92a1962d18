package signing

import "errors"

// Sentinel kinds for signing errors. Callers inspect them with errors.Is.
var (
	ErrKeyNotFound   = errors.New("private key file not found")
	ErrKeyRead       = errors.New("private key read failed")
	ErrKeyDecode     = errors.New("private key decode failed")
	ErrKeyNotRSA     = errors.New("private key is not RSA")
	ErrNoKeyPath     = errors.New("private key path not configured")
	ErrSign          = errors.New("signing failed")
	ErrInvalidMethod = errors.New("invalid HTTP method")
	ErrInvalidPath   = errors.New("invalid API path")
)
