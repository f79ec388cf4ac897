package handler

import (
	"github.com/gin-gonic/gin"

	"notegen-api/internal/domain/repository"
	"notegen-api/internal/interfaces/http/dto"
	"notegen-api/internal/interfaces/http/middleware"
	apperrors "notegen-api/pkg/errors"
)

// UserHandler 用户处理器
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// GetMe 获取当前用户信息
// @Summary 当前用户
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userRepo.GetByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get user"))
		return
	}
	if user == nil {
		respondError(c, apperrors.ErrUserNotFound)
		return
	}
	dto.Success(c, dto.ToUserResponse(user))
}
