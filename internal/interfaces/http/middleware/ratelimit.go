// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"notegen-api/internal/interfaces/http/dto"
	"notegen-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// Limit 窗口内允许的请求数
	Limit int
	// Window 滑动窗口长度
	Window time.Duration
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// KeyFunc 由主体（用户或 IP）与路由模板生成限流键
type KeyFunc func(subject, endpoint string) string

// RateLimit 限流中间件，登录用户按用户 ID 计数，游客按客户端 IP 计数
func RateLimit(cfg RateLimitConfig, limiter RateLimiter, keyFn KeyFunc) gin.HandlerFunc {
	// 如果未启用限流，返回空中间件
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// 设置默认值
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if keyFn == nil {
		keyFn = func(subject, endpoint string) string {
			return "ratelimit:" + subject + ":" + endpoint
		}
	}

	return func(c *gin.Context) {
		subject := UserID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		allowed, err := limiter.Allow(c.Request.Context(), keyFn(subject, endpoint), cfg.Limit, cfg.Window)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			dto.AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		c.Next()
	}
}
