package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/fulfillrelay/internal/metrics"
)

const unmatchedRoute = "unmatched"

// RequestMetrics records request counts and latency by route template.
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
