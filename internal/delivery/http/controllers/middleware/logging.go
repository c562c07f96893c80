package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

func LoggingMiddleware(l logger.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		method := c.Request.Method
		path := c.Request.URL.Path
		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			path = fmt.Sprintf("%s?%s", path, rawQuery)
		}
		status := c.Writer.Status()
		reqLog := l.With("request_id", requestID, "method", method, "path", path)
		if s := Session(c); s != nil {
			reqLog = reqLog.With("user_id", s.UserID)
		}

		reqLog.Info(fmt.Sprintf("%s %s", method, path),
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)

		for _, ginErr := range c.Errors {
			reqLog.ErrorErr("HTTP request error", ginErr.Err, "status", status)
		}
	}
}
