// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"notegen-api/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *RouterHandlers, rl middleware.RateLimitConfig) {
	requireAuth := middleware.RequireAuth(h.Tokens)
	optionalAuth := middleware.OptionalAuth(h.Tokens)
	// 调用上游服务的接口按用户或 IP 限流
	limited := middleware.RateLimit(rl, h.RateLimiter, h.RateLimitKey)

	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// 用户
	v1.GET("/users/me", requireAuth, h.User.GetMe)

	// 历史记录
	histories := v1.Group("/history", requireAuth)
	{
		histories.GET("", h.History.ListHistories)
		histories.POST("", h.History.SaveHistory)
	}

	// 预设与下载
	v1.GET("/catalog", h.Catalog.GetCatalog)
	v1.GET("/download", limited, h.Download.Download)

	// 单步接口
	v1.POST("/rewrite", optionalAuth, limited, h.Generation.Rewrite)
	v1.POST("/generate-image", optionalAuth, limited, h.Generation.GenerateImage)

	// 完整生成流程（游客可用）
	generations := v1.Group("/generations", optionalAuth)
	{
		generations.POST("", limited, h.Generation.StartGeneration)
		generations.GET("/:gid", h.Generation.GetGeneration)
		generations.GET("/:gid/events", h.Generation.StreamEvents) // SSE
		generations.POST("/:gid/sections/:sid/retry", limited, h.Generation.RetrySection)
	}
}
