// Package lookup puts caching, request coalescing, rate limiting and a
// circuit breaker in front of the Snusbase client.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	apierrors "github.com/olgasafonova/snusbase-mcp-server/internal/errors"
	"github.com/olgasafonova/snusbase-mcp-server/internal/infra"
	"github.com/olgasafonova/snusbase-mcp-server/internal/snusbase"
	"github.com/olgasafonova/snusbase-mcp-server/metrics"
	"github.com/olgasafonova/snusbase-mcp-server/tracing"
)

const (
	// DefaultCacheTTL for cached responses
	DefaultCacheTTL = 5 * time.Minute

	// MaxConcurrentRequests limits parallel API calls
	MaxConcurrentRequests = 5
)

// Cache key prefixes, one per endpoint
const (
	opSearch = "search"
	opHash   = "hash"
	opIP     = "ip"
)

// Service issues validated lookups through the resilience layer.
// It is safe for concurrent use.
type Service struct {
	client   *snusbase.Client
	logger   *slog.Logger
	cache    infra.Cache
	cacheTTL time.Duration
	dedup    *infra.Deduplicator
	breaker  *infra.CircuitBreaker
	limiter  *rate.Limiter
	sem      *semaphore.Weighted

	fetchTimeout time.Duration
}

// ServiceOption configures the Service
type ServiceOption func(*Service)

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache sets the response cache. Use infra.NopCache to disable caching.
func WithCache(c infra.Cache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithCacheTTL sets how long responses stay cached
func WithCacheTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

// WithMaxConcurrent limits in-flight API calls
func WithMaxConcurrent(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithRateLimit spaces API calls to rps per second with the given burst.
// rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) ServiceOption {
	return func(s *Service) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithFetchTimeout bounds one upstream fetch, including time spent waiting
// for the limiter and a request slot. Callers coalesced onto the fetch share
// it, so it is detached from any single caller's cancellation.
func WithFetchTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithCircuitBreaker replaces the default breaker
func WithCircuitBreaker(cb *infra.CircuitBreaker) ServiceOption {
	return func(s *Service) {
		if cb != nil {
			s.breaker = cb
		}
	}
}

// NewService wraps client with an in-memory cache, a default circuit
// breaker and a concurrency cap of MaxConcurrentRequests.
func NewService(client *snusbase.Client, opts ...ServiceOption) *Service {
	s := &Service{
		client:   client,
		logger:   slog.Default(),
		cacheTTL: DefaultCacheTTL,
		dedup:    infra.NewDeduplicator(),
		sem:      semaphore.NewWeighted(MaxConcurrentRequests),

		fetchTimeout: snusbase.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil {
		s.cache = infra.NewMemoryCache(infra.DefaultMaxCacheEntries, s.cacheTTL)
	}
	if s.breaker == nil {
		s.breaker = infra.NewCircuitBreaker(infra.WithStateListener(func(st infra.CircuitState) {
			metrics.SetCircuitState(int(st))
		}))
	}

	return s
}

// Close releases the cache
func (s *Service) Close() error {
	return s.cache.Close()
}

// Search looks up term in one category
func (s *Service) Search(ctx context.Context, term string, searchType snusbase.SearchType, wildcard bool) (json.RawMessage, Source, error) {
	term, err := ValidateTerm("term", term)
	if err != nil {
		return nil, "", err
	}
	if !searchType.Valid() {
		return nil, "", apierrors.NewValidationError("type", string(searchType), "unknown search type")
	}

	return s.do(ctx, lookupCall{
		op:         opSearch,
		endpoint:   snusbase.EndpointSearch,
		searchType: searchType,
		wildcard:   wildcard,
		term:       term,
		fetch: func(ctx context.Context) (json.RawMessage, error) {
			return s.client.Search(ctx, term, searchType, wildcard)
		},
	})
}

// HashLookup resolves a hash through the hash tool endpoint
func (s *Service) HashLookup(ctx context.Context, hash string) (json.RawMessage, Source, error) {
	hash, err := ValidateHash(hash)
	if err != nil {
		return nil, "", err
	}

	return s.do(ctx, lookupCall{
		op:         opHash,
		endpoint:   snusbase.EndpointHashLookup,
		searchType: snusbase.TypeHash,
		term:       hash,
		fetch: func(ctx context.Context) (json.RawMessage, error) {
			return s.client.HashLookup(ctx, hash)
		},
	})
}

// IPLookup returns WHOIS data for an address
func (s *Service) IPLookup(ctx context.Context, ip string) (json.RawMessage, Source, error) {
	ip, err := ValidateIP(ip)
	if err != nil {
		return nil, "", err
	}

	return s.do(ctx, lookupCall{
		op:       opIP,
		endpoint: snusbase.EndpointIPWhois,
		term:     ip,
		fetch: func(ctx context.Context) (json.RawMessage, error) {
			return s.client.IPLookup(ctx, ip)
		},
	})
}

// lookupCall describes one validated lookup
type lookupCall struct {
	op         string
	endpoint   string
	searchType snusbase.SearchType
	wildcard   bool
	term       string
	fetch      func(context.Context) (json.RawMessage, error)
}

func (c lookupCall) cacheKey() string {
	return infra.HashKey(c.op, string(c.searchType), c.wildcard, c.term)
}

func (s *Service) do(ctx context.Context, c lookupCall) (json.RawMessage, Source, error) {
	ctx, span := tracing.StartSpan(ctx, "snusbase."+c.op)
	defer span.End()
	tracing.AddLookupAttributes(span, c.endpoint, string(c.searchType), c.wildcard)

	key := c.cacheKey()

	if data, ok := s.cacheGet(ctx, key); ok {
		metrics.RecordCacheAccess(true)
		tracing.AddSourceAttribute(span, string(SourceCache))
		return data, SourceCache, nil
	}
	metrics.RecordCacheAccess(false)

	v, shared, err := s.dedup.Do(ctx, key, func() (any, error) {
		// Keeps trace values but not the first caller's cancellation
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, c, key)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, "", err
	}

	source := SourceUpstream
	if shared {
		metrics.CoalescedRequests.Inc()
		source = SourceShared
	}
	tracing.AddSourceAttribute(span, string(source))

	return v.(json.RawMessage), source, nil
}

// fetch runs one upstream call behind the breaker, limiter and semaphore.
// Every path after Allow either records a verdict or releases the breaker slot.
func (s *Service) fetch(ctx context.Context, c lookupCall, key string) (json.RawMessage, error) {
	if err := s.breaker.Allow(); err != nil {
		return nil, err
	}

	if s.limiter != nil && !s.limiter.Allow() {
		metrics.RateLimitWaits.Inc()
		if err := s.limiter.Wait(ctx); err != nil {
			s.breaker.Release()
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.breaker.Release()
		return nil, fmt.Errorf("timed out waiting for request slot: %w", err)
	}
	defer s.sem.Release(1)

	data, err := c.fetch(ctx)
	if err != nil {
		s.breaker.RecordFailure()
		return nil, err
	}
	s.breaker.RecordSuccess()

	if cacheable(data) {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache response", "endpoint", c.endpoint, "error", err)
		}
		s.reportCacheSize()
	}

	return data, nil
}

func (s *Service) cacheGet(ctx context.Context, key string) (json.RawMessage, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache read failed, treating as miss", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return json.RawMessage(data), true
}

func (s *Service) reportCacheSize() {
	if sizer, ok := s.cache.(infra.Sizer); ok {
		metrics.SetCacheSize(sizer.Len())
	}
}

// cacheable rejects error payloads so a rejected key or a rate-limit answer
// is not replayed for the whole TTL.
func cacheable(data json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		// Arrays and scalars are passed through and cached as-is
		return true
	}
	_, hasErrors := obj["errors"]
	_, hasError := obj["error"]
	return !hasErrors && !hasError
}

// Stats returns cache size, in-flight lookups and breaker state
func (s *Service) Stats() Stats {
	stats := Stats{
		CacheBackend:   cacheBackendName(s.cache),
		InFlight:       s.dedup.Stats(),
		CircuitBreaker: s.breaker.Stats(),
	}
	if sizer, ok := s.cache.(infra.Sizer); ok {
		stats.CacheEntries = sizer.Len()
	}
	return stats
}

func cacheBackendName(c infra.Cache) string {
	switch c.(type) {
	case *infra.MemoryCache:
		return "memory"
	case *infra.RedisCache:
		return "redis"
	case infra.NopCache, *infra.NopCache:
		return "none"
	default:
		return "custom"
	}
}
