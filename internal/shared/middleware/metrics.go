package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/metrics"
)

// Metrics returns a middleware that records HTTP metrics labelled by route
// pattern. Requests that match no route share one label.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		m.RecordHTTPRequest(method, path, c.Writer.Status(), time.Since(start))
	}
}
