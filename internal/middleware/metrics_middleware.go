package middleware

import (
	"strconv"

	"xupload/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware counts requests by route template, not raw path.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}
