package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"notegen-api/pkg/logger"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// RequestID 沿用客户端传入的合法请求 ID，否则生成新的 UUID；
// 同时写入日志上下文与响应头，便于与 SSE、worker 日志关联
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID))
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// validRequestID 只接受短的字母数字与 - _ .，避免把任意内容写进日志
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
