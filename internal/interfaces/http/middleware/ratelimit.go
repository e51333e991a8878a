package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is the contract the rate limit middleware enforces against.
type RateLimiter interface {
	// Allow reports whether a request with the given key may proceed, along
	// with the current limit state for response headers.
	Allow(key string) (bool, RateLimitInfo)
}

// RateLimitInfo carries the limit state exposed via X-RateLimit-* headers.
type RateLimitInfo struct {
	// Limit is the maximum burst size.
	Limit int
	// Remaining is the approximate number of requests left in the burst.
	Remaining int
	// ResetAt is when the next token becomes available.
	ResetAt time.Time
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained per-key request rate.
	RequestsPerSecond float64
	// BurstSize is the maximum burst above the sustained rate.
	BurstSize int
	// KeyFunc extracts the rate limit key from a request.  Nil defaults to
	// client IP extraction.
	KeyFunc func(r *http.Request) string
	// SkipPaths are paths that bypass rate limiting.
	SkipPaths []string
	// ExceededHandler is invoked when the limit is exceeded.  Nil sends a
	// default 429 response.
	ExceededHandler http.Handler
	// CleanupInterval is how often idle per-key limiters are evicted.
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		KeyFunc:           defaultKeyFunc,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		CleanupInterval:   5 * time.Minute,
	}
}

// defaultKeyFunc extracts the client IP as the rate limit key.  RealIP
// middleware runs earlier in the chain, so RemoteAddr is already the
// forwarded address when the request came through a proxy.
func defaultKeyFunc(r *http.Request) string {
	return r.RemoteAddr
}

// APIKeyFunc keys rate limiting by the X-API-Key header when present,
// falling back to the client IP.
func APIKeyFunc(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return "apikey:" + key
	}
	return "ip:" + defaultKeyFunc(r)
}

// ─────────────────────────────────────────────────────────────────────────────
// Per-key token bucket limiter
// ─────────────────────────────────────────────────────────────────────────────

// keyedLimiter pairs a token bucket with its last use for idle eviction.
type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyLimiter maintains one token bucket per key.  Idle keys are evicted by a
// background loop so the map does not grow without bound.
type KeyLimiter struct {
	rps             rate.Limit
	burst           int
	mu              sync.Mutex
	limiters        map[string]*keyedLimiter
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// NewKeyLimiter creates a per-key limiter with the given sustained rate and
// burst.  A cleanupInterval of zero disables eviction.
func NewKeyLimiter(rps float64, burst int, cleanupInterval time.Duration) *KeyLimiter {
	l := &KeyLimiter{
		rps:             rate.Limit(rps),
		burst:           burst,
		limiters:        make(map[string]*keyedLimiter),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Allow consumes one token from the bucket belonging to key.
func (l *KeyLimiter) Allow(key string) (bool, RateLimitInfo) {
	now := time.Now()

	l.mu.Lock()
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = kl
	}
	kl.lastSeen = now
	l.mu.Unlock()

	allowed := kl.limiter.Allow()

	remaining := int(kl.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	resetAt := now
	if l.rps > 0 {
		resetAt = now.Add(time.Duration(float64(time.Second) / float64(l.rps)))
	}
	return allowed, RateLimitInfo{Limit: l.burst, Remaining: remaining, ResetAt: resetAt}
}

// cleanupLoop periodically evicts limiters that have been idle for longer
// than the cleanup interval.
func (l *KeyLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *KeyLimiter) cleanup() {
	threshold := time.Now().Add(-l.cleanupInterval)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, kl := range l.limiters {
		if kl.lastSeen.Before(threshold) {
			delete(l.limiters, key)
		}
	}
}

// Stop terminates the background cleanup goroutine.
func (l *KeyLimiter) Stop() {
	close(l.stopCleanup)
}

// ActiveKeys returns the number of live per-key limiters, for monitoring.
func (l *KeyLimiter) ActiveKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// RateLimit returns middleware that enforces per-key rate limiting and sets
// the X-RateLimit-* headers on every response.
func RateLimit(limiter RateLimiter, config RateLimitConfig) func(http.Handler) http.Handler {
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}

	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = defaultKeyFunc
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSet[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			allowed, info := limiter.Allow(keyFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfter := time.Until(info.ResetAt).Seconds()
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))

				if config.ExceededHandler != nil {
					config.ExceededHandler.ServeHTTP(w, r)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":"COMMON_007","message":"too many requests"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

//Personal.AI order the ending
