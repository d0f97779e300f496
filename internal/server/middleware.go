package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const paymentEndpoint = "payments.record"

// PaymentRateLimit throttles payment writes per client IP. Requests over
// the limit get a 429 with a Retry-After hint.
func (s *Server) PaymentRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.paymentLimiter == nil {
			c.Next()
			return
		}

		result := s.paymentLimiter.Allow(c.Request.Context(), c.ClientIP())
		if result.Allowed {
			s.obsMetrics.RecordRateLimitAllowed(paymentEndpoint)
			c.Next()
			return
		}

		s.obsMetrics.RecordRateLimitDenied(paymentEndpoint, "bucket_empty")
		if result.RetryAfter > 0 {
			seconds := int64(result.RetryAfter / time.Second)
			if result.RetryAfter%time.Second > 0 {
				seconds++
			}
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
			Success: false,
			Error:   "rate_limited",
		})
	}
}
