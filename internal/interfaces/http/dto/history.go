package dto

import (
	"encoding/json"
	"time"

	"notegen-api/internal/domain/entity"
)

// SaveHistoryRequest 保存历史请求，resultJson 可以是字符串或任意 JSON 值
type SaveHistoryRequest struct {
	RawText    string          `json:"rawText"`
	ResultJSON json.RawMessage `json:"resultJson"`
}

// HistoryResponse 历史记录
type HistoryResponse struct {
	ID         string    `json:"id"`
	RawText    string    `json:"raw_text"`
	ResultJSON string    `json:"result_json"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryListResponse 历史列表
type HistoryListResponse struct {
	Histories []*HistoryResponse `json:"histories"`
}

// SaveHistoryResponse 保存结果
type SaveHistoryResponse struct {
	Success bool             `json:"success"`
	History *HistoryResponse `json:"history"`
}

// ToHistoryResponse 转换历史实体
func ToHistoryResponse(h *entity.History) *HistoryResponse {
	if h == nil {
		return nil
	}
	return &HistoryResponse{
		ID:         h.ID,
		RawText:    h.RawText,
		ResultJSON: h.ResultJSON,
		CreatedAt:  h.CreatedAt,
	}
}

// ToHistoryListResponse 转换历史列表，空列表输出 []
func ToHistoryListResponse(items []*entity.History) *HistoryListResponse {
	out := make([]*HistoryResponse, 0, len(items))
	for _, h := range items {
		out = append(out, ToHistoryResponse(h))
	}
	return &HistoryListResponse{Histories: out}
}
