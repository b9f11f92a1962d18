// Package signing produces Kalshi API request signatures.
//
// The signed message is timestamp + method + path with no delimiters,
// signed with RSA-PSS over SHA-256 (salt length equal to the digest length)
// and encoded as standard base64.
package signing

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/okian/mentionproxy/pkg/metrics"
)

// Signer produces request signatures.
type Signer interface {
	Sign(ctx context.Context, method, path, timestamp string) (string, error)
}

// RSASigner signs with the key returned by its KeyProvider. Keys are fetched per call.
type RSASigner struct {
	keys KeyProvider
}

// NewRSASigner creates a signer backed by keys.
func NewRSASigner(keys KeyProvider) *RSASigner {
	return &RSASigner{keys: keys}
}

// Message returns the canonical string that is signed for a request.
func Message(method, path, timestamp string) string {
	return timestamp + method + path
}

// Sign returns the base64 RSA-PSS signature of Message(method, path, timestamp).
func (s *RSASigner) Sign(ctx context.Context, method, path, timestamp string) (string, error) {
	metrics.RecordSigningAttempt()

	if strings.TrimSpace(method) == "" {
		metrics.RecordSigningFailure("invalid_input")
		return "", ErrInvalidMethod
	}
	if !strings.HasPrefix(path, "/") {
		metrics.RecordSigningFailure("invalid_input")
		return "", fmt.Errorf("%w: %q must be absolute", ErrInvalidPath, path)
	}

	key, err := s.keys.PrivateKey(ctx)
	if err != nil {
		metrics.RecordSigningFailure("key_unavailable")
		return "", err
	}

	digest := sha256.Sum256([]byte(Message(method, path, timestamp)))
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		metrics.RecordSigningFailure("crypto")
		return "", fmt.Errorf("%w: %w", ErrSign, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks signature against the public half of key. Used by tests and tooling.
func Verify(pub *rsa.PublicKey, method, path, timestamp, signature string) error {
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	digest := sha256.Sum256([]byte(Message(method, path, timestamp)))
	return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], raw, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
}
