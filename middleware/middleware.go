package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"sparkshare-api/utils"
)

// ErrorHandler answers 500 for handlers that recorded an error with c.Error
// without writing a response themselves.
func ErrorHandler(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		for _, ginErr := range c.Errors {
			log.WithError(ginErr.Err).WithField("path", c.Request.URL.Path).Error("unhandled request error")
		}
		utils.SendError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// callerLimiter is one caller's token bucket and when it was last used.
type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out a token bucket per caller key. Buckets that have not
// been used for idleAfter are evicted by Sweep.
type RateLimiter struct {
	mu        sync.Mutex
	callers   map[string]*callerLimiter
	every     rate.Limit
	burst     int
	idleAfter time.Duration
	now       func() time.Time
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		callers:   make(map[string]*callerLimiter),
		every:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     burst,
		idleAfter: 10 * time.Minute,
		now:       time.Now,
	}
}

// Allow takes a token from key's bucket and reports what is left.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.callers[key]
	if !ok {
		entry = &callerLimiter{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.callers[key] = entry
	}
	now := rl.now()
	entry.lastSeen = now

	allowed := entry.limiter.AllowN(now, 1)
	return allowed, int(entry.limiter.TokensAt(now))
}

// Sweep evicts idle callers.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleAfter)
	for key, entry := range rl.callers {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.callers, key)
		}
	}
}

// RateLimit limits each caller, keyed by user id once authenticated and by
// client IP otherwise. The sweeper stops when ctx is done.
func RateLimit(ctx context.Context, perMinute, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(perMinute, burst)

	go func() {
		ticker := time.NewTicker(limiter.idleAfter)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				limiter.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(c *gin.Context) {
		key := c.GetString(UserIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		allowed, remaining := limiter.Allow(key)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(time.Minute.Seconds()/float64(perMinute)))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.ErrorResponse{
				Error:   "Rate limit exceeded",
				Message: fmt.Sprintf("At most %d requests per minute are allowed", perMinute),
				Code:    http.StatusTooManyRequests,
			})
			return
		}

		c.Next()
	}
}

// ValidateJSON rejects request bodies that are not JSON. Bodyless POSTs such
// as accept and reject pass through.
func ValidateJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength == 0 || c.ContentType() == gin.MIMEJSON {
			c.Next()
			return
		}

		utils.SendError(c, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		c.Abort()
	}
}

// RequestLogger writes one entry per request, at Warn for client errors and
// Error for server errors.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(started).String(),
			"user_agent": c.Request.UserAgent(),
		})
		if userID := c.GetString(UserIDKey); userID != "" {
			entry = entry.WithField("user_id", userID)
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// Timeout bounds every store call made while serving the request.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "no-referrer",
	"Cache-Control":          "no-store",
}

// SecurityHeaders marks every API response as private JSON.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range securityHeaders {
			c.Header(name, value)
		}
		c.Next()
	}
}
