package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/searchpulse/backend/metrics"
)

// TrackRequests records every request in the Prometheus counters, keyed by
// route template so path parameters do not explode the label set.
func TrackRequests(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordRequest(path, c.Request.Method, c.Writer.Status())
	}
}
