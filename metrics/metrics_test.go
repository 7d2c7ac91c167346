package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordRequest(t *testing.T) {
	tests := []struct {
		name       string
		tool       string
		duration   float64
		success    bool
		wantStatus string
	}{
		{
			name:       "successful request",
			tool:       "test_tool",
			duration:   0.5,
			success:    true,
			wantStatus: "success",
		},
		{
			name:       "failed request",
			tool:       "test_tool",
			duration:   1.0,
			success:    false,
			wantStatus: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordRequest(tt.tool, tt.duration, tt.success)

			counter, err := RequestsTotal.GetMetricWithLabelValues(tt.tool, tt.wantStatus)
			if err != nil {
				t.Fatalf("failed to get metric: %v", err)
			}
			if getCounterValue(t, counter) < 1 {
				t.Error("expected counter to be incremented")
			}
		})
	}
}

func TestRecordAPICall(t *testing.T) {
	tests := []struct {
		name       string
		endpoint   string
		status     int
		size       int
		errorKind  string
		wantStatus string
	}{
		{
			name:       "successful call",
			endpoint:   "/data/search",
			status:     200,
			size:       512,
			wantStatus: "200",
		},
		{
			name:       "error payload is still a response",
			endpoint:   "/tools/hash-lookup",
			status:     401,
			size:       40,
			wantStatus: "401",
		},
		{
			name:       "transport failure has no status",
			endpoint:   "/tools/ip-whois",
			status:     0,
			errorKind:  "transport",
			wantStatus: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordAPICall(tt.endpoint, tt.status, 0.1, tt.size, tt.errorKind)

			counter, err := APIRequestsTotal.GetMetricWithLabelValues(tt.endpoint, tt.wantStatus)
			if err != nil {
				t.Fatalf("failed to get metric: %v", err)
			}
			if getCounterValue(t, counter) < 1 {
				t.Error("expected request counter to be incremented")
			}

			if tt.errorKind != "" {
				errCounter, err := APIErrors.GetMetricWithLabelValues(tt.endpoint, tt.errorKind)
				if err != nil {
					t.Fatalf("failed to get error metric: %v", err)
				}
				if getCounterValue(t, errCounter) < 1 {
					t.Error("expected error counter to be incremented")
				}
			}
		})
	}
}

func TestRecordCacheAccess(t *testing.T) {
	initialHits := getCounterValue(t, CacheHits)
	initialMisses := getCounterValue(t, CacheMisses)

	RecordCacheAccess(true)
	if getCounterValue(t, CacheHits) != initialHits+1 {
		t.Error("expected cache hits to increment")
	}

	RecordCacheAccess(false)
	if getCounterValue(t, CacheMisses) != initialMisses+1 {
		t.Error("expected cache misses to increment")
	}
}

func TestSetCacheSize(t *testing.T) {
	SetCacheSize(100)
	if got := getGaugeValue(t, CacheSize); got != 100 {
		t.Errorf("expected cache size 100, got %v", got)
	}

	SetCacheSize(50)
	if got := getGaugeValue(t, CacheSize); got != 50 {
		t.Errorf("expected cache size 50, got %v", got)
	}
}

func TestSetCircuitState(t *testing.T) {
	SetCircuitState(1)
	if got := getGaugeValue(t, CircuitBreakerState); got != 1 {
		t.Errorf("circuit state = %v, want 1", got)
	}
	SetCircuitState(0)
	if got := getGaugeValue(t, CircuitBreakerState); got != 0 {
		t.Errorf("circuit state = %v, want 0", got)
	}
}

func TestMetricsRegistered(t *testing.T) {
	metrics := []prometheus.Collector{
		RequestsTotal,
		RequestDuration,
		RequestInFlight,
		CacheHits,
		CacheMisses,
		CacheSize,
		CacheEvictions,
		APILatency,
		APIRequestsTotal,
		APIErrors,
		ResponseSize,
		CoalescedRequests,
		CircuitBreakerState,
		RateLimitRejections,
		RateLimitWaits,
		AuthFailures,
		PanicsRecovered,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	}

	for i, m := range metrics {
		if m == nil {
			t.Errorf("metric at index %d is nil", i)
		}
	}
}

func TestNamespace(t *testing.T) {
	if Namespace != "snusbase_mcp" {
		t.Errorf("expected namespace 'snusbase_mcp', got '%s'", Namespace)
	}
}

func getCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.Counter.GetValue()
}

func getGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.Gauge.GetValue()
}
