// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"notegen-api/internal/interfaces/http/dto"
	"notegen-api/pkg/logger"
	"notegen-api/pkg/utils"
)

// ContextUserIDKey gin.Context 中的用户 ID
const ContextUserIDKey = "user_id"

// TokenParser 解析访问令牌
type TokenParser interface {
	ParseTokenOfType(token, tokenType string) (*utils.Claims, error)
}

// RequireAuth 要求有效的访问令牌
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return auth(parser, true)
}

// OptionalAuth 有令牌时解析并注入用户，无令牌按游客处理；令牌无效仍返回 401
func OptionalAuth(parser TokenParser) gin.HandlerFunc {
	return auth(parser, false)
}

func auth(parser TokenParser, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 获取 Authorization Header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if required {
				dto.AbortWithError(c, http.StatusUnauthorized, "missing authorization header")
				return
			}
			c.Next()
			return
		}

		// 解析 Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			dto.AbortWithError(c, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims, err := parser.ParseTokenOfType(strings.TrimSpace(parts[1]), utils.TokenTypeAccess)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, utils.ErrExpiredToken) {
				msg = "token expired"
			}
			dto.AbortWithError(c, http.StatusUnauthorized, msg)
			return
		}

		// 注入用户信息到 Context
		c.Set(ContextUserIDKey, claims.UserID)
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// UserID 读取当前用户 ID，游客返回空串
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
