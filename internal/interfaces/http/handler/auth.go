// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/domain/repository"
	"notegen-api/internal/interfaces/http/dto"
	apperrors "notegen-api/pkg/errors"
	"notegen-api/pkg/logger"
	"notegen-api/pkg/utils"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/v1/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager   *utils.JWTManager
	userRepo     repository.UserRepository
	secureCookie bool
}

// NewAuthHandler 创建认证处理器；secureCookie 为 true 时刷新 Cookie 仅经 HTTPS 发送
func NewAuthHandler(jwtManager *utils.JWTManager, userRepo repository.UserRepository, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		jwtManager:   jwtManager,
		userRepo:     userRepo,
		secureCookie: secureCookie,
	}
}

// Register 注册
// @Summary 用户注册
// @Description 创建账号并返回访问令牌，刷新令牌写入 HttpOnly Cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.AuthResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	if !entity.ValidPassword(req.Password) {
		respondError(c, apperrors.ErrWeakPassword)
		return
	}

	// 检查邮箱是否已存在
	exists, err := h.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeDatabaseError, "registration failed"))
		return
	}
	if exists {
		respondError(c, apperrors.ErrDuplicateEmail)
		return
	}

	user := entity.NewUser(req.Email, req.Name)
	if err := user.SetPassword(req.Password); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInternalError, "registration failed"))
		return
	}

	// 并发注册同一邮箱时由唯一索引兜底
	if err := h.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			respondError(c, apperrors.ErrDuplicateEmail)
			return
		}
		respondError(c, apperrors.Wrap(err, apperrors.CodeDatabaseError, "registration failed"))
		return
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInternalError, "user created but failed to generate tokens"))
		return
	}
	h.setRefreshCookie(c, tokens.RefreshToken)

	logger.Info(ctx, "user registered", "user_id", user.ID)
	dto.Created(c, &dto.AuthResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   tokens.ExpiresIn,
		User:        dto.ToAuthUserDTO(user),
	})
}

// Login 登录
// @Summary 用户登录
// @Description 验证邮箱密码并返回双 Token；未知邮箱与密码错误返回同一提示
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeDatabaseError, "login failed"))
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		respondError(c, apperrors.ErrInvalidCredentials)
		return
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err.Error(), "user_id", user.ID)
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to generate tokens"))
		return
	}
	h.setRefreshCookie(c, tokens.RefreshToken)

	dto.Success(c, &dto.AuthResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   tokens.ExpiresIn,
		User:        dto.ToAuthUserDTO(user),
	})
}

// RefreshToken 用 Cookie 中的刷新令牌换取新的访问令牌
// @Summary 刷新访问令牌
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.Response[dto.RefreshResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := c.Request.Context()

	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil || refreshToken == "" {
		respondError(c, apperrors.ErrTokenMissing)
		return
	}

	claims, err := h.jwtManager.ParseTokenOfType(refreshToken, utils.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			respondError(c, apperrors.ErrTokenExpired)
			return
		}
		respondError(c, apperrors.ErrTokenInvalid)
		return
	}

	// 账号已删除的令牌不再续期
	user, err := h.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeDatabaseError, "refresh failed"))
		return
	}
	if user == nil {
		respondError(c, apperrors.ErrTokenInvalid)
		return
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to generate access token"))
		return
	}
	h.setRefreshCookie(c, tokens.RefreshToken)

	dto.Success(c, &dto.RefreshResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   tokens.ExpiresIn,
	})
}

// Logout 登出，清除刷新 Cookie
// @Summary 用户登出
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.Response[map[string]bool]
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.secureCookie, true)
	dto.Success(c, gin.H{"success": true})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	maxAge := int(h.jwtManager.RefreshTTL().Seconds())
	c.SetCookie(refreshCookieName, token, maxAge, refreshCookiePath, "", h.secureCookie, true)
}
