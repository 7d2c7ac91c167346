package lookup

import "github.com/olgasafonova/snusbase-mcp-server/internal/infra"

// Source says where a lookup answer came from
type Source string

const (
	SourceUpstream Source = "upstream" // fetched from the API by this call
	SourceCache    Source = "cache"    // served from the response cache
	SourceShared   Source = "shared"   // coalesced with an identical in-flight call
)

// Stats is a snapshot of the service's resilience layer
type Stats struct {
	CacheBackend   string                    `json:"cache_backend"`
	CacheEntries   int                       `json:"cache_entries"`
	InFlight       int                       `json:"in_flight"`
	CircuitBreaker infra.CircuitBreakerStats `json:"circuit_breaker"`
}
