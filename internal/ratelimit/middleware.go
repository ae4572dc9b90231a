package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const DeviceIDKey = "device_id"

type Middleware struct {
	limiter RateLimiter
}

func NewMiddleware(limiter RateLimiter) *Middleware {
	return &Middleware{
		limiter: limiter,
	}
}

// IPRateLimit middleware for general IP-based rate limiting
func (m *Middleware) IPRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, err := m.limiter.AllowIPRequest(c.Request.Context(), ip)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to check rate limit",
			})
			c.Abort()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Rate limit exceeded. Please try again later.",
				"code":    "RATE_LIMIT_IP",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// DeviceID stores the reporting device in the context. Devices identify
// themselves with X-Device-ID or ?device_id; the client IP is the fallback.
func (m *Middleware) DeviceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader("X-Device-ID")
		if deviceID == "" {
			deviceID = c.Query("device_id")
		}
		if deviceID == "" {
			deviceID = c.ClientIP()
		}

		c.Set(DeviceIDKey, deviceID)
		c.Next()
	}
}
