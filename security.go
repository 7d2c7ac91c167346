package main

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/olgasafonova/snusbase-mcp-server/metrics"
)

// staleLimiterAge is how long an idle client's bucket is kept
const staleLimiterAge = 10 * time.Minute

// RateLimiter hands each client IP its own token bucket of rate requests per
// interval.
type RateLimiter struct {
	rate     int
	interval time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopCh    chan struct{}
	closeOnce sync.Once
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter and starts its cleanup loop. Call Close to
// stop it.
func NewRateLimiter(requests int, interval time.Duration) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	rl := &RateLimiter{
		rate:     requests,
		interval: interval,
		clients:  make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether ip may make a request now
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok {
		every := rl.interval / time.Duration(rl.rate)
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Every(every), rl.rate)}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// Close stops the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, c := range rl.clients {
				if now.Sub(c.lastSeen) > staleLimiterAge {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// SecurityConfig controls the HTTP transport guards
type SecurityConfig struct {
	// AuthToken, when set, must be presented as "Authorization: Bearer <token>"
	AuthToken string

	// RateLimit is requests per minute per client IP; 0 disables limiting
	RateLimit int

	// MaxBodySize caps request bodies in bytes; 0 means no cap
	MaxBodySize int64

	// TrustedProxies lists the peers whose forwarding headers name the
	// client. Requests from anyone else are keyed on RemoteAddr.
	TrustedProxies []netip.Prefix
}

// SecurityMiddleware applies body limits, per-IP rate limiting and bearer
// authentication in front of next.
type SecurityMiddleware struct {
	next    http.Handler
	logger  *slog.Logger
	config  SecurityConfig
	limiter *RateLimiter
}

// NewSecurityMiddleware wraps next with the guards enabled in config
func NewSecurityMiddleware(next http.Handler, logger *slog.Logger, config SecurityConfig) *SecurityMiddleware {
	sm := &SecurityMiddleware{
		next:   next,
		logger: logger,
		config: config,
	}
	if config.RateLimit > 0 {
		sm.limiter = NewRateLimiter(config.RateLimit, time.Minute)
	}
	return sm
}

// Close releases the rate limiter
func (sm *SecurityMiddleware) Close() {
	if sm.limiter != nil {
		sm.limiter.Close()
	}
}

func (sm *SecurityMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if sm.limiter != nil && !sm.limiter.Allow(ip) {
		metrics.RateLimitRejections.Inc()
		sm.logger.Warn("Rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
		w.Header().Set("Retry-After", "60")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if sm.config.AuthToken != "" {
		if reason := checkBearer(r, sm.config.AuthToken); reason != "" {
			metrics.AuthFailures.WithLabelValues(reason).Inc()
			sm.logger.Warn("Authentication failed", "client_ip", ip, "reason", reason)
			w.Header().Set("WWW-Authenticate", `Bearer realm="snusbase-mcp-server"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	if sm.config.MaxBodySize > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, sm.config.MaxBodySize)
	}

	sm.next.ServeHTTP(w, r)
}

// checkBearer returns the failure reason, or "" when the token matches
func checkBearer(r *http.Request, token string) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "missing"
	}
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "malformed"
	}
	given := strings.TrimSpace(header[len(prefix):])
	if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
		return "invalid"
	}
	return ""
}

// clientIP strips the port from RemoteAddr. trustedRealIP has already
// replaced RemoteAddr for requests relayed by a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// trustedRealIP applies chi's RealIP only to requests whose peer address is
// in proxies. Forwarding headers from other peers are ignored.
func trustedRealIP(proxies []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		realIP := middleware.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fromTrustedProxy(r, proxies) {
				realIP.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func fromTrustedProxy(r *http.Request, proxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(clientIP(r))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
