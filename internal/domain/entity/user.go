// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength 密码最小长度
const MinPasswordLength = 6

// PasswordHashCost bcrypt 散列成本
const PasswordHashCost = 10

// User 用户实体
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // 不在 JSON 中暴露
	Name         string     `json:"name"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser 创建新用户，name 为空时取邮箱 @ 之前的部分
func NewUser(email, name string) *User {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = emailLocalPart(email)
	}
	now := time.Now()
	return &User{
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail 统一邮箱格式
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// ValidPassword 检查密码强度
func ValidPassword(password string) bool {
	return len([]rune(password)) >= MinPasswordLength
}

// SetPassword 设置并散列密码
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// TouchLogin 记录登录时间
func (u *User) TouchLogin(at time.Time) {
	u.LastLoginAt = &at
	u.UpdatedAt = at
}
