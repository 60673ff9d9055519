package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/telemetry"
)

// Logging emits a structured log and records HTTP metrics per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(c.Request.Method, route, status, latency)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       route,
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
		}
		for _, key := range []string{"requestRecordId", "documentId", "statusTransition"} {
			if v, ok := c.Get(key); ok {
				fields[logKey(key)] = v
			}
		}
		telemetry.Info("request.complete", fields)
	}
}

func logKey(key string) string {
	switch key {
	case "requestRecordId":
		return "signature_request_id"
	case "documentId":
		return "document_id"
	case "statusTransition":
		return "status_transition"
	}
	return key
}
