// Snusbase MCP Server - A Model Context Protocol server for the Snusbase API
// Provides tools for searching breach data, resolving hashes and IP WHOIS lookups
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/olgasafonova/snusbase-mcp-server/internal/config"
	"github.com/olgasafonova/snusbase-mcp-server/internal/infra"
	"github.com/olgasafonova/snusbase-mcp-server/internal/lookup"
	"github.com/olgasafonova/snusbase-mcp-server/internal/snusbase"
	"github.com/olgasafonova/snusbase-mcp-server/tools"
	"github.com/olgasafonova/snusbase-mcp-server/tracing"
)

const (
	ServerName    = "snusbase-mcp-server"
	ServerVersion = "1.0.0"
)

// recoverPanic logs a panic instead of crashing with a bare stack trace
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:          ServerName,
		Short:        "MCP server for the Snusbase breach data API",
		Version:      ServerVersion,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, httpAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve MCP over HTTP on this address instead of stdio (overrides SNUSBASE_HTTP_ADDR)")

	return cmd
}

func run(ctx context.Context, httpAddr string) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}

	// Logging goes to stderr; stdout carries the MCP protocol in stdio mode
	logger := newLogger(cfg.Debug)
	defer recoverPanic(logger, "server")

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := newMCPServer(svc, logger)

	logger.Info("Starting Snusbase MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"config", cfg)

	if cfg.HTTPAddr == "" {
		return server.Run(ctx, &mcp.StdioTransport{})
	}

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}
	handler, closeRouter := newRouter(server, svc, logger, SecurityConfig{
		AuthToken:      cfg.AuthToken,
		RateLimit:      cfg.HTTPRateLimit,
		MaxBodySize:    maxBodySize,
		TrustedProxies: proxies,
	})
	defer closeRouter()

	if cfg.AuthToken == "" {
		logger.Warn("HTTP transport running without authentication; set SNUSBASE_AUTH_TOKEN")
	}
	return serveHTTP(ctx, cfg.HTTPAddr, handler, logger)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newService builds the client and the cache-backed lookup service from cfg
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*lookup.Service, error) {
	cache, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := snusbase.NewClient(cfg.APIKey,
		snusbase.WithHTTPClient(tracing.HTTPClient(cfg.Timeout)),
		snusbase.WithBaseURL(cfg.BaseURL),
		snusbase.WithLogger(logger),
		snusbase.WithDebugLogging(cfg.Debug))

	return lookup.NewService(client,
		lookup.WithLogger(logger),
		lookup.WithCache(cache),
		lookup.WithCacheTTL(cfg.CacheTTL),
		lookup.WithMaxConcurrent(cfg.MaxConcurrent),
		lookup.WithFetchTimeout(cfg.Timeout),
		lookup.WithRateLimit(cfg.RateLimit, cfg.RateBurst)), nil
}

func newCache(ctx context.Context, cfg *config.Config) (infra.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		return infra.NopCache{}, nil
	case config.CacheRedis:
		cache, err := infra.NewRedisCacheFromURL(cfg.RedisURL, infra.DefaultRedisPrefix, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		if err := cache.Ping(ctx); err != nil {
			_ = cache.Close()
			return nil, fmt.Errorf("redis cache unreachable: %w", err)
		}
		return cache, nil
	default:
		return infra.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL), nil
	}
}

func newMCPServer(svc *lookup.Service, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: serverInstructions(),
	})

	tools.NewHandlerRegistry(svc, logger).RegisterAll(server)
	return server
}

func serverInstructions() string {
	var b strings.Builder
	b.WriteString("Snusbase MCP Server looks up leaked breach records through the Snusbase API.\n")

	for _, group := range []struct{ title, category string }{
		{"Search tools", "search"},
		{"Lookup tools", "tools"},
	} {
		fmt.Fprintf(&b, "\n%s:\n", group.title)
		for _, spec := range tools.ToolsByCategory(group.category) {
			fmt.Fprintf(&b, "- %s: %s\n", spec.Name, firstLine(spec.Description))
		}
	}

	b.WriteString(`
Results are returned exactly as the API sent them, including error payloads.

Configure via environment variables:
- SNUSBASE_API_KEY: API key (required)
- SNUSBASE_CACHE_BACKEND: memory, redis or none
- SNUSBASE_HTTP_ADDR: serve over HTTP instead of stdio
- SNUSBASE_TRUSTED_PROXY: reverse proxies whose forwarding headers are trusted`)
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
