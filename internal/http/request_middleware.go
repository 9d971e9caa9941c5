package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/deskpilot/deskpilot/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// HeaderRequestID echoes the request id assigned to each call.
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware assigns a request id, keeping one supplied by the caller.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// RequestLogMiddleware logs each request and its outcome with a status-based level.
// GET /logs itself is not logged.
func RequestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && c.Request.URL.Path == "/logs" {
			c.Next()
			return
		}

		start := time.Now()
		target := c.Request.URL.Path
		if query := util.MaskSensitiveQuery(c.Request.URL.RawQuery); query != "" {
			target += "?" + query
		}
		entry := log.WithField("request_id", c.GetString("requestID"))
		entry.Debugf("%s %s", c.Request.Method, target)

		c.Next()

		statusCode := c.Writer.Status()
		message := fmt.Sprintf("%s %s - %d (%s)", c.Request.Method, target, statusCode, time.Since(start).Round(time.Millisecond))
		switch {
		case statusCode >= 400:
			entry.Error(message)
		case statusCode >= 300:
			entry.Debug(message)
		default:
			entry.Info(message)
		}
	}
}
