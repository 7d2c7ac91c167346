// Package config loads server settings from SNUSBASE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. SNUSBASE_API_KEY
const Prefix = "SNUSBASE"

// Variables the command-line client reads
const (
	EnvAPIKey  = Prefix + "_API_KEY"
	EnvBaseURL = Prefix + "_BASE_URL"
	EnvTimeout = Prefix + "_TIMEOUT"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds the configuration for the MCP server.
type Config struct {
	// Snusbase API
	APIKey  string        `envconfig:"API_KEY" required:"true"`
	BaseURL string        `envconfig:"BASE_URL" default:"https://api-experimental.snusbase.com"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"15s"`
	Debug   bool          `envconfig:"DEBUG" default:"false"`

	// Response cache
	CacheBackend string        `envconfig:"CACHE_BACKEND" default:"memory"`
	CacheSize    int           `envconfig:"CACHE_SIZE" default:"1000"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	RedisURL     string        `envconfig:"REDIS_URL" default:""`

	// Upstream throttling
	MaxConcurrent int     `envconfig:"MAX_CONCURRENT" default:"5"`
	RateLimit     float64 `envconfig:"RATE_LIMIT" default:"0"`
	RateBurst     int     `envconfig:"RATE_BURST" default:"1"`

	// HTTP transport; stdio is used when HTTPAddr is empty
	HTTPAddr      string `envconfig:"HTTP_ADDR" default:""`
	AuthToken     string `envconfig:"AUTH_TOKEN" default:""`
	HTTPRateLimit int    `envconfig:"HTTP_RATE_LIMIT" default:"60"`

	// Comma-separated addresses or CIDRs of reverse proxies whose
	// True-Client-IP, X-Real-IP and X-Forwarded-For headers are trusted
	TrustedProxies []string `envconfig:"TRUSTED_PROXY"`
}

// ClientConfig is what the command-line client takes from the environment.
// APIKey may be empty here since a flag can supply it.
type ClientConfig struct {
	APIKey  string        `envconfig:"API_KEY"`
	BaseURL string        `envconfig:"BASE_URL" default:"https://api-experimental.snusbase.com"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"15s"`
}

// LoadClient parses the client variables
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", EnvTimeout, cfg.Timeout)
	}
	return &cfg, nil
}

// Load parses the environment and validates the result
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%s is required", EnvAPIKey)
	}

	switch c.CacheBackend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%s_REDIS_URL is required when %s_CACHE_BACKEND=redis", Prefix, Prefix)
		}
	default:
		return fmt.Errorf("unsupported %s_CACHE_BACKEND: %q (want memory, redis or none)", Prefix, c.CacheBackend)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%s_TIMEOUT must be positive, got %s", Prefix, c.Timeout)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("%s_MAX_CONCURRENT must be positive, got %d", Prefix, c.MaxConcurrent)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s_RATE_LIMIT must not be negative, got %v", Prefix, c.RateLimit)
	}
	if c.HTTPRateLimit < 0 {
		return fmt.Errorf("%s_HTTP_RATE_LIMIT must not be negative, got %d", Prefix, c.HTTPRateLimit)
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, s := range c.TrustedProxies {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s_TRUSTED_PROXY entry %q: %w", Prefix, s, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s_TRUSTED_PROXY entry %q: %w", Prefix, s, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// LogValue implements slog.LogValuer. Secrets are reported only as present or absent.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", c.BaseURL),
		slog.Duration("timeout", c.Timeout),
		slog.Bool("debug", c.Debug),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.String("cache_backend", c.CacheBackend),
		slog.Int("cache_size", c.CacheSize),
		slog.Duration("cache_ttl", c.CacheTTL),
		slog.Int("max_concurrent", c.MaxConcurrent),
		slog.Float64("rate_limit", c.RateLimit),
		slog.String("http_addr", c.HTTPAddr),
		slog.Bool("auth_token_set", c.AuthToken != ""),
		slog.Any("trusted_proxies", c.TrustedProxies),
	)
}
