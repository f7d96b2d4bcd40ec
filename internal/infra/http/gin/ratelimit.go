package ginserver

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	rediscache "staybook/internal/infra/cache/redis"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (rediscache.Decision, error)
}

// RateLimit keys on the caller id, or the client IP for anonymous requests.
// Limiter failures let the request through.
func RateLimit(limiter RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actor, ok := currentActor(c); ok && actor.ID != "" {
			key = "user:" + actor.ID
		}
		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			if logger != nil {
				logger.WarnContext(c.Request.Context(), "rate limiter unavailable", "error", err)
			}
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			secs := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"kind":        "RateLimited",
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}
