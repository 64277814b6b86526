package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LoginRateLimit counts attempts per client IP. When the counter store is
// unreachable the request goes through; logins must not depend on redis.
func LoginRateLimit(limiter AttemptLimiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Str("request_id", RequestIDFrom(c)).Msg("login rate limit unavailable")
			c.Next()
			return
		}
		if !allowed {
			log.Warn().Str("client_ip", c.ClientIP()).Msg("login rate limit exceeded")
			abort(c, http.StatusTooManyRequests, "Too many login attempts, try again later.")
			return
		}
		c.Next()
	}
}
