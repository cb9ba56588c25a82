package middleware

import (
	"time"

	"devhost-keeper/services"

	"github.com/gin-gonic/gin"
)

// Prometheus scrapes are not counted.
const metricsPath = "/metrics"

/**
 * Status API request statistics
 * @returns {gin.HandlerFunc} Middleware recording count, duration and errors per route
 * @description
 * - Labels by route template (/devhost/api/v1/services/:name/check), unmatched routes as "unknown"
 * - Status >= 400 is counted as an error
 * - The totals feed the /healthz metrics block
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == metricsPath {
			return
		}
		if route == "" {
			route = "unknown"
		}
		services.IncrementRequestCount(route)
		services.RecordRequestDuration(route, time.Since(start).Seconds())
		if c.Writer.Status() >= 400 {
			services.IncrementErrorCount(route)
		}
	}
}
