package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey is the gin context key holding the request correlation ID.
const requestIDKey = "tenantgate.request_id"

// requestIDHeader carries the correlation ID on responses and may supply
// one on inbound requests from trusted upstream proxies.
const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a correlation ID, echoed on the response
// and available to downstream handlers and the audit trail.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the correlation ID assigned by RequestID, or an
// empty string when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
