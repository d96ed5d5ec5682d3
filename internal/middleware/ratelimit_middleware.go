package middleware

import (
	"context"
	"net/http"
	"strconv"

	"poll-service/internal/redis"
	"poll-service/internal/transport/httpdto"
	"poll-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VoteLimiter is satisfied by *redis.RateLimiter.
type VoteLimiter interface {
	AllowVote(ctx context.Context, clientKey string) (*redis.RateLimitResult, error)
}

// VoteRateLimitMiddleware caps votes per client IP. A nil limiter or a
// limiter failure lets the vote through.
func VoteRateLimitMiddleware(limiter VoteLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result, err := limiter.AllowVote(c.Request.Context(), c.ClientIP())
		if err != nil {
			if l != nil {
				l.WithContext(c.Request.Context()).Warn("vote rate limit check failed", zap.Error(err))
			}
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("vote rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
