// Package snusbase is a thin client for the Snusbase data lookup API.
//
// Every lookup is a single JSON POST; responses are returned as raw JSON
// exactly as the API sent them. The client never retries and never inspects
// HTTP status codes, so error payloads reach the caller like any other body.
package snusbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	apierrors "github.com/olgasafonova/snusbase-mcp-server/internal/errors"
	"github.com/olgasafonova/snusbase-mcp-server/metrics"
)

const (
	// DefaultBaseURL is the Snusbase API host
	DefaultBaseURL = "https://api-experimental.snusbase.com"

	// DefaultTimeout for API requests made by the built-in HTTP client
	DefaultTimeout = 15 * time.Second

	// HeaderAuth carries the API key
	HeaderAuth = "Auth"
)

// Client issues lookups against the Snusbase API. It holds no mutable state
// and is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	headers    http.Header
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	debug      bool
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a pre-configured HTTP client. Its timeout and transport
// are used as-is; WithTimeout does not modify it.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout of the built-in HTTP client
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBaseURL overrides the API host (proxies and tests)
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDebugLogging dumps every request and response at debug level.
// The API key is redacted from the dumps.
func WithDebugLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.debug = enabled
	}
}

// NewClient creates a Snusbase client. It never fails: an empty or invalid
// key is only reported by the API when a request is rejected.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.headers = make(http.Header)
	c.headers.Set(HeaderAuth, apiKey)
	c.headers.Set("Content-Type", "application/json")

	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.timeout)
	}

	if c.debug {
		// Copy so a caller-supplied client keeps its own transport.
		hc := *c.httpClient
		hc.Transport = &debugTransport{base: hc.Transport, logger: c.logger, secret: apiKey}
		c.httpClient = &hc
	}

	return c
}

// BaseURL returns the API host requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Headers returns a copy of the headers sent with every request
func (c *Client) Headers() http.Header {
	return c.headers.Clone()
}

// Request sends method to baseURL+endpoint and returns the response body as
// raw JSON. params is appended as a query string when non-empty; body is
// JSON-encoded when non-nil. It fails on transport errors (including
// timeouts and context cancellation) and when the body is not valid JSON.
func (c *Client) Request(ctx context.Context, method, endpoint string, params url.Values, body any) (json.RawMessage, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, 0, time.Since(start).Seconds(), 0, "transport")
		c.logger.Warn("Snusbase request failed",
			"method", method,
			"endpoint", endpoint,
			"error", err)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	data, err := readAndClose(resp)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordAPICall(endpoint, resp.StatusCode, duration.Seconds(), len(data), "transport")
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		metrics.RecordAPICall(endpoint, resp.StatusCode, duration.Seconds(), len(data), "decode")
		return nil, &apierrors.DecodeError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     truncate(string(data), 200),
			Err:      err,
		}
	}

	metrics.RecordAPICall(endpoint, resp.StatusCode, duration.Seconds(), len(data), "")
	c.logger.Debug("Snusbase request completed",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", duration)

	return raw, nil
}

// post is the JSON POST used by every lookup
func (c *Client) post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, endpoint, nil, body)
}

// readAndClose reads the response body and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return body, err
}

// truncate shortens s to at most maxLen bytes without splitting a UTF-8
// sequence, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for i := 0; i < utf8.UTFMax && cut > 0 && !utf8.RuneStart(s[cut]); i++ {
		cut--
	}
	return s[:cut] + "..."
}

// newHTTPClient creates an HTTP client with pooled transport settings
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     120 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
