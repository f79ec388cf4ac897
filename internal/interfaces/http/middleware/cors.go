package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

var (
	defaultCORSOrigins = []string{"http://localhost:3000"}
	defaultCORSMethods = []string{"GET", "POST", "OPTIONS"}
	defaultCORSHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
)

// CORS 跨域中间件。刷新令牌走 Cookie，必须允许携带凭证；
// 浏览器不接受凭证请求配 "*"，因此通配时改为回显请求来源。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowOrigins:     orDefault(cfg.AllowedOrigins, defaultCORSOrigins),
		AllowMethods:     orDefault(cfg.AllowedMethods, defaultCORSMethods),
		AllowHeaders:     orDefault(cfg.AllowedHeaders, defaultCORSHeaders),
		ExposeHeaders:    []string{RequestIDHeader, TraceIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(c.AllowOrigins, "*") {
		c.AllowOrigins = nil
		c.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(c)
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
