// ratelimit.go provides Gin middleware that enforces per-client token-bucket rate limits,
// rendering a 429 page when the configured requests-per-minute threshold is exceeded.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/object-registry/object-registry/internal/config"
	"github.com/object-registry/object-registry/internal/safego"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute
	RequestsPerMinute int
	// BurstSize is the maximum burst of requests allowed
	BurstSize int
	// CleanupInterval is how often to clean up expired entries
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the page limits from the security configuration
func DefaultRateLimitConfig(cfg config.RateLimitingConfig) RateLimitConfig {
	rl := RateLimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		BurstSize:         cfg.Burst,
		CleanupInterval:   5 * time.Minute,
	}
	if rl.RequestsPerMinute <= 0 {
		rl.RequestsPerMinute = 120
	}
	if rl.BurstSize <= 0 {
		rl.BurstSize = 30
	}
	return rl
}

// LoginRateLimitConfig returns stricter limits for login attempts
func LoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
	}
}

// rateLimitEntry is one client's token bucket
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
}

// idleEntryTTL is how long an untouched bucket survives cleanup
const idleEntryTTL = 10 * time.Minute

// RateLimiter implements a token bucket rate limiter keyed by client
type RateLimiter struct {
	config   RateLimitConfig
	entries  map[string]*rateLimitEntry
	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		entries: make(map[string]*rateLimitEntry),
		stopCh:  make(chan struct{}),
	}

	safego.Go("rate-limit-cleanup", rl.cleanup)

	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.entries {
		if now.Sub(entry.lastUpdate) > idleEntryTTL {
			delete(rl.entries, key)
		}
	}
}

// Stop stops the cleanup goroutine. Calling it more than once is safe.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) refillRate() float64 {
	return float64(rl.config.RequestsPerMinute) / 60.0
}

// tokensAt returns the bucket level of entry at now, capped at the burst size
func (rl *RateLimiter) tokensAt(entry *rateLimitEntry, now time.Time) float64 {
	added := now.Sub(entry.lastUpdate).Seconds() * rl.refillRate()
	return min(float64(rl.config.BurstSize), entry.tokens+added)
}

// Allow takes one token from key's bucket and reports whether one was available
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.entries[key]
	if !exists {
		rl.entries[key] = &rateLimitEntry{
			tokens:     float64(rl.config.BurstSize) - 1,
			lastUpdate: now,
		}
		return true
	}

	entry.tokens = rl.tokensAt(entry, now)
	entry.lastUpdate = now

	if entry.tokens >= 1 {
		entry.tokens--
		return true
	}
	return false
}

// RemainingTokens returns how many whole tokens are left for key
func (rl *RateLimiter) RemainingTokens(key string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, exists := rl.entries[key]
	if !exists {
		return rl.config.BurstSize
	}
	return int(rl.tokensAt(entry, time.Now()))
}

// RetryAfter returns how long key must wait for its next token, rounded up to
// whole seconds and never less than one second.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, exists := rl.entries[key]
	if !exists || rl.refillRate() <= 0 {
		return time.Minute
	}
	missing := 1 - rl.tokensAt(entry, time.Now())
	if missing <= 0 {
		return time.Second
	}
	seconds := math.Ceil(missing / rl.refillRate())
	return time.Duration(max(seconds, 1)) * time.Second
}

// RateLimitMiddleware rejects clients that have exhausted their bucket with a 429 page
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerMinute))

		if !limiter.Allow(key) {
			retryAfter := limiter.RetryAfter(key)
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			RenderError(c, http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again.")
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingTokens(key)))
		c.Next()
	}
}

// getRateLimitKey keys logged-in users by id and everyone else by client IP
func getRateLimitKey(c *gin.Context) string {
	if userID, ok := GetUserID(c); ok && userID > 0 {
		return "user:" + strconv.FormatInt(userID, 10)
	}

	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
