package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TeheranMauricio/ai-summary-server-joingo/pkg/logger"
)

// RequestLogger writes one structured log line per request and injects a
// request_id. A client-supplied X-Request-ID is kept so upstream proxies
// can correlate. Probe and scrape endpoints are skipped, they would
// drown out everything else.
func RequestLogger() gin.HandlerFunc {
	skip := map[string]struct{}{
		"/health":    {},
		"/readiness": {},
		"/metrics":   {},
	}
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)

		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		logger.L().Info("http_request",
			"rid", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", duration.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
