package entity

import (
	"time"
)

// History 生成历史记录，创建后不再修改
type History struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	RawText    string    `json:"raw_text"`
	ResultJSON string    `json:"result_json"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewHistory 创建历史记录
func NewHistory(userID, rawText, resultJSON string) *History {
	return &History{
		UserID:     userID,
		RawText:    rawText,
		ResultJSON: resultJSON,
		CreatedAt:  time.Now(),
	}
}
