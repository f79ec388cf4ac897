package repository

import (
	"context"

	"notegen-api/internal/domain/entity"
)

// HistoryRepository 生成历史仓储接口，所有查询都限定在 userID 范围内
type HistoryRepository interface {
	// Create 追加一条历史
	Create(ctx context.Context, history *entity.History) error

	// ListByUser 按创建时间倒序返回最近 limit 条
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.History, error)
}
