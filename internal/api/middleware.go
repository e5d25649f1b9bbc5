package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"iotmon/internal/gateway"
	"iotmon/internal/logging"
)

const requestIDHeader = "X-Request-ID"

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.WithRequestID(reqID).Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}

// RequireSession sends visitors without a credential to the login route.
func RequireSession(creds gateway.Credentials, nav *Navigator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := creds.Get(); !ok {
			nav.Navigate(RouteLogin)
			c.Redirect(http.StatusSeeOther, RouteLogin)
			c.Abort()
			return
		}
		c.Next()
	}
}
