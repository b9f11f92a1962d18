package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnv names the environment variable holding an optional YAML file path.
const ConfigFileEnv = "KALSHI_PROXY_CONFIG"

const envPrefix = "KALSHI_PROXY_"

// Established variable names shared with the dashboard deployment.
var legacyEnv = map[string]string{
	"SERVER_PORT":             "server_port",
	"KALSHI_API_KEY_ID":       "api_key_id",
	"KALSHI_PRIVATE_KEY_PATH": "private_key_path",
	"KALSHI_BASE_URL":         "base_url",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if KALSHI_PROXY_CONFIG is set
//  3. env: the legacy names above, then KALSHI_PROXY_<KEY>
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Returning "" from the callback drops the variable.
	envProvider := env.Provider("", ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps an environment variable name to a flat koanf key.
func envKey(name string) string {
	if key, ok := legacyEnv[name]; ok {
		return key
	}
	if !strings.HasPrefix(name, envPrefix) || name == ConfigFileEnv {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(name, envPrefix))
}
