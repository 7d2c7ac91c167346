package snusbase

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
)

// debugTransport logs full request and response dumps at debug level.
// Dumps include lookup terms, so it is meant for local troubleshooting only.
type debugTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
	secret string
}

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if reqDump, err := httputil.DumpRequestOut(req, true); err == nil {
		dt.logger.Debug("HTTP request",
			"method", req.Method,
			"url", req.URL.String(),
			"request_dump", dt.redact(string(reqDump)))
	}

	resp, err := dt.next().RoundTrip(req)
	if err != nil {
		dt.logger.Debug("HTTP request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"error", err)
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		dt.logger.Debug("HTTP response",
			"method", req.Method,
			"url", req.URL.String(),
			"status_code", resp.StatusCode,
			"response_dump", string(respDump))
	}
	return resp, nil
}

func (dt *debugTransport) next() http.RoundTripper {
	if dt.base == nil {
		return http.DefaultTransport
	}
	return dt.base
}

func (dt *debugTransport) redact(s string) string {
	if dt.secret == "" {
		return s
	}
	return strings.ReplaceAll(s, dt.secret, "[REDACTED]")
}
