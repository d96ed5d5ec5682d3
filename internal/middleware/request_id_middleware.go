package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"poll-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = newRequestID()
		}
		c.Writer.Header().Set("X-Request-Id", requestID)
		// request ID and client IP ride on the context so every log line carries them
		ctx := context.WithValue(c.Request.Context(), logger.RequestIdKey, requestID)
		ctx = context.WithValue(ctx, logger.ClientIpKey, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// newRequestID returns 16 random bytes as hex, shorter than a dashed uuid
func newRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
