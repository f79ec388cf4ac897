package postgres

import (
	"time"

	"notegen-api/internal/domain/entity"
)

// userModel users 表
type userModel struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	Name         string `gorm:"size:128"`
	PasswordHash string `gorm:"not null"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

func newUserModel(u *entity.User) *userModel {
	return &userModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m *userModel) toEntity() *entity.User {
	return &entity.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		LastLoginAt:  m.LastLoginAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// historyModel histories 表
type historyModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `gorm:"index:idx_histories_user_created,priority:1;type:varchar(36);not null"`
	RawText    string    `gorm:"type:text;not null"`
	ResultJSON string    `gorm:"column:result_json;type:text;not null"`
	CreatedAt  time.Time `gorm:"index:idx_histories_user_created,priority:2,sort:desc"`
}

func (historyModel) TableName() string { return "histories" }

func newHistoryModel(h *entity.History) *historyModel {
	return &historyModel{
		ID:         h.ID,
		UserID:     h.UserID,
		RawText:    h.RawText,
		ResultJSON: h.ResultJSON,
		CreatedAt:  h.CreatedAt,
	}
}

func (m *historyModel) toEntity() *entity.History {
	return &entity.History{
		ID:         m.ID,
		UserID:     m.UserID,
		RawText:    m.RawText,
		ResultJSON: m.ResultJSON,
		CreatedAt:  m.CreatedAt,
	}
}
