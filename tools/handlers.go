package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/olgasafonova/snusbase-mcp-server/internal/lookup"
	"github.com/olgasafonova/snusbase-mcp-server/internal/snusbase"
	"github.com/olgasafonova/snusbase-mcp-server/metrics"
	"github.com/olgasafonova/snusbase-mcp-server/tracing"
)

const redacted = "[REDACTED]"

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	service *lookup.Service
	logger  *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(service *lookup.Service, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		service: service,
		logger:  logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)

	switch spec.Method {
	case "Search":
		register(h, server, tool, spec, h.service.SearchMCP)
	case "SearchByEmail":
		register(h, server, tool, spec, h.service.SearchByEmailMCP)
	case "SearchByUsername":
		register(h, server, tool, spec, h.service.SearchByUsernameMCP)
	case "HashLookup":
		register(h, server, tool, spec, h.service.HashLookupMCP)
	case "IPWhois":
		register(h, server, tool, spec, h.service.IPWhoisMCP)
	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
	return true
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	} else {
		annotations.DestructiveHint = ptr(false)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Title:       spec.Title,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a tool with the MCP server.
// It wraps the service method with panic recovery, metrics, tracing, and logging.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (_ *mcp.CallToolResult, result Result, err error) {
		defer h.recoverPanic(spec.Name, &err)

		requestID := uuid.NewString()

		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(
			attribute.String("mcp.request_id", requestID),
			attribute.Bool("mcp.tool.readonly", spec.ReadOnly),
		)

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		result, err = method(ctx, args)
		duration := time.Since(start)

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration.Seconds()))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(spec.Name, duration.Seconds(), false)
			h.logger.Warn("Tool failed",
				"tool", spec.Name,
				"request_id", requestID,
				"duration", duration,
				"error", err)
			var zero Result
			return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration.Seconds(), true)
		h.logExecution(spec, requestID, duration, args, result)
		return nil, result, nil
	})
}

// recoverPanic recovers from panics in tool handlers and turns them into a
// tool error.
func (h *HandlerRegistry) recoverPanic(toolName string, err *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"panic", rec,
			"stack", string(debug.Stack()))
		if err != nil {
			*err = fmt.Errorf("%s failed: internal error", toolName)
		}
	}
}

// logExecution logs tool execution details. Password terms are redacted.
func (h *HandlerRegistry) logExecution(spec ToolSpec, requestID string, duration time.Duration, args, result any) {
	attrs := []any{"tool", spec.Name, "category", spec.Category, "request_id", requestID, "duration", duration}

	switch a := args.(type) {
	case lookup.SearchArgs:
		attrs = append(attrs,
			"type", a.Type,
			"term", termForLog(a.Type, a.Term),
			"wildcard", a.Wildcard)
	case lookup.EmailSearchArgs:
		attrs = append(attrs, "email", a.Email, "wildcard", a.Wildcard)
	case lookup.UsernameSearchArgs:
		attrs = append(attrs, "username", a.Username, "wildcard", a.Wildcard)
	case lookup.HashLookupArgs:
		attrs = append(attrs, "hash", a.Hash)
	case lookup.IPWhoisArgs:
		attrs = append(attrs, "ip", a.IP)
	}

	if r, ok := result.(lookup.LookupResult); ok {
		attrs = append(attrs,
			"endpoint", r.Endpoint,
			"source", r.Source,
			"results_count", resultCount(r.Data))
	}

	h.logger.Info("Tool executed", attrs...)
}

// termForLog hides password search terms
func termForLog(searchType, term string) string {
	if st, err := snusbase.ParseSearchType(searchType); err == nil && st == snusbase.TypePassword {
		return redacted
	}
	return term
}

// resultCount counts records under the response's "results" key. Results are
// either a list or an object keyed by breach (or address) holding lists.
func resultCount(data any) int {
	obj, ok := data.(map[string]any)
	if !ok {
		return 0
	}
	switch results := obj["results"].(type) {
	case []any:
		return len(results)
	case map[string]any:
		n := 0
		for _, v := range results {
			if list, ok := v.([]any); ok {
				n += len(list)
			} else {
				n++
			}
		}
		return n
	default:
		return 0
	}
}
