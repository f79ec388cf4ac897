// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notegen-api/internal/config"
	"notegen-api/internal/interfaces/http/handler"
	"notegen-api/internal/interfaces/http/middleware"
)

// RouterHandlers 路由依赖的处理器与中间件组件
type RouterHandlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	History      *handler.HistoryHandler
	Catalog      *handler.CatalogHandler
	Generation   *handler.GenerationHandler
	Download     *handler.DownloadHandler
	Health       *handler.HealthHandler
	Tokens       middleware.TokenParser
	RateLimiter  middleware.RateLimiter
	RateLimitKey middleware.KeyFunc
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// NewWithDeps 创建路由器并注册全部路由
func NewWithDeps(cfg *config.Config, h *RouterHandlers) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		cfg:    cfg,
	}

	r.setupMiddleware()
	r.setupSystemRoutes(h.Health)

	rl := middleware.RateLimitConfig{
		Enabled: cfg.Security.RateLimit.Enabled,
		Limit:   cfg.Security.RateLimit.Limit,
		Window:  cfg.Security.RateLimit.Window,
	}
	r.engine.GET("/download", middleware.RateLimit(rl, h.RateLimiter, h.RateLimitKey), h.Download.Download)
	RegisterV1Routes(r.engine.Group("/v1"), h, rl)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, r.cfg.Observability.Metrics.Path))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupSystemRoutes 健康检查与指标端点
func (r *Router) setupSystemRoutes(health *handler.HealthHandler) {
	r.engine.GET("/health", health.Health)
	r.engine.GET("/ready", health.Ready)
	r.engine.GET("/live", health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}
}
