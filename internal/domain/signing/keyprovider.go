package signing

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/okian/mentionproxy/pkg/metrics"
)

// KeyProvider supplies the RSA private key used for request signing.
type KeyProvider interface {
	PrivateKey(ctx context.Context) (*rsa.PrivateKey, error)
}

// ExpandHome resolves a leading "~" or "~/" against the current user's home directory.
// Other paths are returned unchanged.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// FileKeyProvider reads a PEM encoded key from disk on every call.
type FileKeyProvider struct {
	path string
}

// NewFileKeyProvider returns a provider for path. "~" is expanded lazily on each read.
func NewFileKeyProvider(path string) *FileKeyProvider {
	return &FileKeyProvider{path: strings.TrimSpace(path)}
}

// Path returns the configured (unexpanded) key path.
func (p *FileKeyProvider) Path() string { return p.path }

// PrivateKey reads and parses the key file.
func (p *FileKeyProvider) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	key, err := p.load(ctx)
	if err != nil {
		metrics.RecordKeyLoad("file", "error")
		return nil, err
	}
	metrics.RecordKeyLoad("file", "ok")
	return key, nil
}

func (p *FileKeyProvider) load(ctx context.Context) (*rsa.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.path == "" {
		return nil, ErrNoKeyPath
	}
	path, err := ExpandHome(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyRead, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrKeyRead, err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey decodes the first PEM block of data as a PKCS#1 or PKCS#8 RSA key.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrKeyDecode)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyDecode, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyDecode, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrKeyNotRSA, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrKeyDecode, block.Type)
	}
}

// CachedKeyProvider loads the key from its source once and reuses it.
// A failed load is not cached; the next call tries again.
type CachedKeyProvider struct {
	source KeyProvider

	mu  sync.Mutex
	key *rsa.PrivateKey
}

// NewCachedKeyProvider wraps source.
func NewCachedKeyProvider(source KeyProvider) *CachedKeyProvider {
	return &CachedKeyProvider{source: source}
}

// PrivateKey returns the cached key, loading it on first use.
func (c *CachedKeyProvider) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return c.key, nil
	}
	key, err := c.source.PrivateKey(ctx)
	if err != nil {
		return nil, err
	}
	c.key = key
	return key, nil
}
