// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"notegen-api/internal/domain/entity"
)

// RegisterRequest 注册请求，name 为空时取邮箱前缀
type RegisterRequest struct {
	Name     string `json:"name" binding:"omitempty,max=128"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=72"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthUserDTO 认证响应中的用户信息
type AuthUserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"` // 秒
	User        *AuthUserDTO `json:"user"`
}

// RefreshResponse 刷新 Token 响应
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ToAuthUserDTO 将领域实体转换为 DTO
func ToAuthUserDTO(u *entity.User) *AuthUserDTO {
	if u == nil {
		return nil
	}
	return &AuthUserDTO{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}

// UserResponse 当前用户信息
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToUserResponse 转换用户实体
func ToUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
