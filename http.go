package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/olgasafonova/snusbase-mcp-server/internal/infra"
	"github.com/olgasafonova/snusbase-mcp-server/internal/lookup"
	"github.com/olgasafonova/snusbase-mcp-server/metrics"
)

const (
	// maxBodySize caps MCP request bodies in HTTP mode
	maxBodySize = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// statsSource is implemented by *lookup.Service
type statsSource interface {
	Stats() lookup.Stats
}

// healthResponse is served on /health
type healthResponse struct {
	Status  string       `json:"status"`
	Name    string       `json:"name"`
	Version string       `json:"version"`
	Stats   lookup.Stats `json:"stats"`
}

// newRouter mounts the MCP endpoint behind the security middleware next to
// the unauthenticated health and metrics endpoints. The returned func
// releases the middleware's rate limiter.
func newRouter(server *mcp.Server, stats statsSource, logger *slog.Logger, sec SecurityConfig) (http.Handler, func()) {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
	guarded := NewSecurityMiddleware(mcpHandler, logger, sec)

	r := chi.NewRouter()
	if len(sec.TrustedProxies) > 0 {
		r.Use(trustedRealIP(sec.TrustedProxies))
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/health", healthHandler(stats))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handle("/mcp", guarded)

	return otelhttp.NewHandler(r, "mcp.http"), guarded.Close
}

func healthHandler(stats statsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:  "ok",
			Name:    ServerName,
			Version: ServerVersion,
			Stats:   stats.Stats(),
		}
		if resp.Stats.CircuitBreaker.State == infra.CircuitOpen.String() {
			resp.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// metricsMiddleware records request count and latency per route pattern
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// serveHTTP runs handler on addr until ctx is canceled, then shuts down
// gracefully.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening for MCP over HTTP", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
