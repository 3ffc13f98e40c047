package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

const (
	headerOwnerID   = "X-Owner-ID"
	headerRequestID = "X-Request-ID"

	keyOwner     = "owner"
	keyRequestID = "requestID"
)

// requestIDMiddleware adds a unique request ID to each request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(keyRequestID, requestID)
		c.Header(headerRequestID, requestID)
		c.Next()
	}
}

// ownerMiddleware reads the caller from X-Owner-ID.
func ownerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(headerOwnerID)
		if owner == "" {
			owner = services.DefaultOwner
		}
		c.Set(keyOwner, owner)
		c.Next()
	}
}

func ownerFrom(c *gin.Context) string {
	return c.GetString(keyOwner)
}

// requestLogger records every request in the logs and metrics.
func requestLogger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		m.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), latency)

		log := logger.With("request_id", c.GetString(keyRequestID)).
			With("method", c.Request.Method).
			With("route", route).
			With("status", status).
			With("latency_ms", latency.Milliseconds())
		if status >= 500 {
			log.Warn("request failed")
			return
		}
		log.Debug("request")
	}
}
