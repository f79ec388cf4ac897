package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"notegen-api/internal/interfaces/http/dto"
	"notegen-api/pkg/logger"
)

// Recovery 捕获处理器 panic 并返回统一的 500 响应。
// 客户端已断开（常见于 SSE）时只记录日志，不再写响应。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			ctx := c.Request.Context()

			if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
				logger.Warn(ctx, "client connection closed", "path", c.Request.URL.Path, "error", err.Error())
				c.Abort()
				return
			}

			logger.Error(ctx, "panic recovered", err,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)
			dto.AbortWithError(c, http.StatusInternalServerError, "internal server error")
		}()

		c.Next()
	}
}
