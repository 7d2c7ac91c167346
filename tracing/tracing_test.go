package tracing

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useRecorder installs an in-memory tracer provider for the duration of the test
func useRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return exporter
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_ENVIRONMENT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := DefaultConfig()

	if cfg.ServiceName != "snusbase-mcp-server" {
		t.Errorf("Expected ServiceName 'snusbase-mcp-server', got %q", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "1.0.0" {
		t.Errorf("Expected ServiceVersion '1.0.0', got %q", cfg.ServiceVersion)
	}
	if cfg.Environment != "development" {
		t.Errorf("Expected Environment 'development', got %q", cfg.Environment)
	}
	if cfg.Enabled {
		t.Error("Expected Enabled to be false by default")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("Expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultConfig_WithEnvVars(t *testing.T) {
	t.Setenv("OTEL_ENVIRONMENT", "production")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	cfg := DefaultConfig()

	if cfg.Environment != "production" {
		t.Errorf("Expected Environment 'production', got %q", cfg.Environment)
	}
	if !cfg.Enabled {
		t.Error("Expected Enabled to be true")
	}
	if cfg.OTLPEndpoint != "localhost:4318" {
		t.Errorf("Expected OTLPEndpoint 'localhost:4318', got %q", cfg.OTLPEndpoint)
	}
}

func TestDefaultConfig_EnabledByEndpoint(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	if !DefaultConfig().Enabled {
		t.Error("Expected Enabled to be true when OTLP endpoint is set")
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestSetup_StdoutExporterUsesWriter(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		Enabled:        true,
		SampleRate:     1.0,
		Writer:         &buf,
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, span := StartSpan(context.Background(), "exported-span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "exported-span") {
		t.Errorf("span not written to configured writer: %q", buf.String())
	}
}

func TestSetup_DifferentSampleRates(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	tests := []struct {
		name       string
		sampleRate float64
	}{
		{"always sample", 1.0},
		{"never sample", 0.0},
		{"ratio sample", 0.5},
		{"above 1.0", 1.5},
		{"below 0.0", -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), Config{
				ServiceName: "test-service",
				Enabled:     true,
				SampleRate:  tt.sampleRate,
				Writer:      &bytes.Buffer{},
			})
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}
			_ = shutdown(context.Background())
		})
	}
}

func TestStartSpan(t *testing.T) {
	exporter := useRecorder(t)

	ctx, span := StartSpan(context.Background(), "test-span")
	if ctx == nil {
		t.Fatal("Expected context to be non-nil")
	}
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "test-span" {
		t.Fatalf("recorded spans = %v", spans)
	}
	if spans[0].InstrumentationScope.Name != TracerName {
		t.Errorf("scope = %q, want %q", spans[0].InstrumentationScope.Name, TracerName)
	}
}

func TestAddLookupAttributes(t *testing.T) {
	exporter := useRecorder(t)

	_, span := StartSpan(context.Background(), "lookup")
	AddToolAttributes(span, "snusbase_search", "search")
	AddLookupAttributes(span, "/data/search", "email", true)
	AddSourceAttribute(span, "cache")
	span.End()

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range exporter.GetSpans()[0].Attributes {
		attrs[kv.Key] = kv.Value
	}

	checks := map[attribute.Key]string{
		"mcp.tool.name":     "snusbase_search",
		"snusbase.endpoint": "/data/search",
		"snusbase.type":     "email",
		"snusbase.source":   "cache",
	}
	for key, want := range checks {
		if got := attrs[key].AsString(); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if !attrs["snusbase.wildcard"].AsBool() {
		t.Error("snusbase.wildcard should be true")
	}
}

func TestAddLookupAttributes_NoType(t *testing.T) {
	exporter := useRecorder(t)

	_, span := StartSpan(context.Background(), "ip")
	AddLookupAttributes(span, "/tools/ip-whois", "", false)
	span.End()

	for _, kv := range exporter.GetSpans()[0].Attributes {
		if kv.Key == "snusbase.type" {
			t.Error("snusbase.type should be omitted for untyped lookups")
		}
	}
}

func TestRecordError(t *testing.T) {
	exporter := useRecorder(t)

	_, span := StartSpan(context.Background(), "test-error")
	RecordError(span, nil)
	RecordError(span, errors.New("test error"))
	span.End()

	if got := len(exporter.GetSpans()[0].Events); got != 1 {
		t.Errorf("expected 1 error event, got %d", got)
	}
}

func TestHTTPClient(t *testing.T) {
	exporter := useRecorder(t)

	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := HTTPClient(5 * time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.Timeout)
	}

	ctx, parent := StartSpan(context.Background(), "parent")
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/data/search", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	parent.End()

	if traceparent == "" {
		t.Error("trace context was not propagated")
	}

	var found bool
	for _, s := range exporter.GetSpans() {
		if s.Name == "snusbase POST /data/search" {
			found = true
			if s.Parent.SpanID() != parent.SpanContext().SpanID() {
				t.Error("client span is not a child of the caller's span")
			}
		}
	}
	if !found {
		t.Errorf("no client span recorded, got %d spans", len(exporter.GetSpans()))
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_GET_ENV_KEY", "custom-value")
	t.Setenv("TEST_GET_ENV_KEY_EMPTY", "")

	if got := getEnvOrDefault("TEST_GET_ENV_KEY", "default"); got != "custom-value" {
		t.Errorf("Expected 'custom-value', got %q", got)
	}
	if got := getEnvOrDefault("TEST_GET_ENV_KEY_EMPTY", "default"); got != "default" {
		t.Errorf("Expected 'default' for empty var, got %q", got)
	}
	if got := getEnvOrDefault("TEST_GET_ENV_KEY_UNSET_XYZ", "default"); got != "default" {
		t.Errorf("Expected 'default' for unset var, got %q", got)
	}
}

func TestTracerName(t *testing.T) {
	if TracerName != "snusbase-mcp-server" {
		t.Errorf("Expected TracerName 'snusbase-mcp-server', got %q", TracerName)
	}
}
