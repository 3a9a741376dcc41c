package middlewares

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/geocoder89/taskmanager/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit rejects requests over the limiter's budget with a 429. A limiter
// error lets the request through and is logged.
func RateLimit(l ratelimit.Limiter, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		d, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			slog.Default().WarnContext(c.Request.Context(), "rate_limiter_unavailable", "err", err)
			c.Next()
			return
		}

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			abortError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)

	if ok {
		return "user:" + id
	}

	return KeyByIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
