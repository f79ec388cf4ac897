// Package history 提供生成历史的保存与查询
package history

import (
	"context"
	"encoding/json"
	"strings"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/domain/repository"
	apperrors "notegen-api/pkg/errors"
)

// DefaultLimit 每个用户返回的历史条数上限
const DefaultLimit = 50

// Service 历史服务，调用方必须传入已认证的用户 ID
type Service struct {
	repo  repository.HistoryRepository
	limit int
}

func NewService(repo repository.HistoryRepository, limit int) *Service {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	return &Service{repo: repo, limit: limit}
}

// Save 保存一条历史；resultJSON 可以是 JSON 字符串或任意 JSON 值
func (s *Service) Save(ctx context.Context, userID, rawText string, resultJSON json.RawMessage) (*entity.History, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("rawText is required")
	}
	result, err := normalizeResult(resultJSON)
	if err != nil {
		return nil, err
	}

	h := entity.NewHistory(userID, rawText, result)
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save history")
	}
	return h, nil
}

// List 按创建时间倒序返回最近的历史
func (s *Service) List(ctx context.Context, userID string) ([]*entity.History, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	items, err := s.repo.ListByUser(ctx, userID, s.limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list histories")
	}
	return items, nil
}

func normalizeResult(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", apperrors.ErrInvalidParam.WithDetail("resultJson is required")
	}
	if !json.Valid([]byte(trimmed)) {
		return "", apperrors.ErrInvalidParam.WithDetail("resultJson must be valid JSON")
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return "", apperrors.ErrInvalidParam.WithDetail("resultJson must be valid JSON")
		}
		if strings.TrimSpace(s) == "" {
			return "", apperrors.ErrInvalidParam.WithDetail("resultJson is required")
		}
		return s, nil
	}
	return trimmed, nil
}
