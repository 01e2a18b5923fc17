package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lorahealth/lora/backend/internal/apierror"
	"github.com/lorahealth/lora/backend/internal/logger"
)

// RateLimiter provides fixed-window request rate limiting per client key
type RateLimiter struct {
	requests map[string]*clientInfo
	mu       sync.RWMutex
	rate     int           // requests per window
	window   time.Duration // time window
	name     string        // identifier for logging
}

type clientInfo struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

// NewRateLimiter creates a new rate limiter
// rate: maximum requests allowed per window
// window: time window for rate limiting
// name: identifier for logging (e.g., "general", "chat")
func NewRateLimiter(rate int, window time.Duration, name string) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string]*clientInfo),
		rate:     rate,
		window:   window,
		name:     name,
	}

	// Start cleanup goroutine to prevent memory leaks
	go rl.cleanup()

	logger.Default().Debug("rate limiter initialized",
		logger.String("name", name),
		logger.Int("rate", rate),
		logger.Duration("window", window),
	)

	return rl
}

// cleanup removes stale entries periodically
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		cleaned := 0
		for key, info := range rl.requests {
			if now.Sub(info.lastSeen) > rl.window*2 {
				delete(rl.requests, key)
				cleaned++
			}
		}
		remaining := len(rl.requests)
		rl.mu.Unlock()

		if cleaned > 0 {
			logger.Default().Debug("rate limiter cleanup completed",
				logger.String("name", rl.name),
				logger.Int("cleaned", cleaned),
				logger.Int("remaining", remaining),
			)
		}
	}
}

// isAllowed checks if a request for the given key is allowed
func (rl *RateLimiter) isAllowed(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	info, exists := rl.requests[key]

	if !exists {
		rl.requests[key] = &clientInfo{count: 1, windowStart: now, lastSeen: now}
		return true, 1
	}

	// Start a new window once the current one has passed
	if now.Sub(info.windowStart) > rl.window {
		info.count = 1
		info.windowStart = now
		info.lastSeen = now
		return true, 1
	}

	info.count++
	info.lastSeen = now

	return info.count <= rl.rate, info.count
}

// RateLimit returns a middleware handler that limits requests per client IP.
// 300 requests per minute covers a full HealthKit backfill in batches.
func RateLimit() gin.HandlerFunc {
	limiter := NewRateLimiter(300, time.Minute, "general")
	return rateLimitMiddleware(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitPerUser limits requests per authenticated user, falling back to the
// client IP. Must run after Auth.
func RateLimitPerUser(rate int, window time.Duration, name string) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window, name)
	return rateLimitMiddleware(limiter, func(c *gin.Context) string {
		if id, ok := UserID(c); ok {
			return "user:" + id
		}
		return "ip:" + c.ClientIP()
	})
}

// rateLimitMiddleware creates the actual middleware handler
func rateLimitMiddleware(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	retryAfter := int(limiter.window.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, count := limiter.isAllowed(key)
		if !allowed {
			log := logger.Ctx(c.Request.Context())
			log.Warn("rate limit exceeded",
				logger.String("limiter", limiter.name),
				logger.String("client_key", key),
				logger.Int("request_count", count),
				logger.Int("limit", limiter.rate),
				logger.Duration("window", limiter.window),
			)

			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.rate))
			c.Header("X-RateLimit-Remaining", "0")
			apierror.WriteProblem(c, apierror.NewRateLimitError(apierror.GetRequestID(c), retryAfter))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.rate-count))
		c.Next()
	}
}
