package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/domain/repository"
)

var _ repository.HistoryRepository = (*HistoryRepository)(nil)

// HistoryRepository 生成历史仓储实现
type HistoryRepository struct {
	client *Client
}

// NewHistoryRepository 创建历史仓储
func NewHistoryRepository(client *Client) *HistoryRepository {
	return &HistoryRepository{client: client}
}

// Create 追加一条历史
func (r *HistoryRepository) Create(ctx context.Context, history *entity.History) error {
	ctx, span := tracer.Start(ctx, "postgres.histories.create")
	defer span.End()

	if history.ID == "" {
		history.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(newHistoryModel(history)).Error; err != nil {
		return spanErr(span, fmt.Errorf("create history: %w", err))
	}
	return nil
}

// ListByUser 按创建时间倒序返回最近 limit 条
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.History, error) {
	ctx, span := tracer.Start(ctx, "postgres.histories.list_by_user")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var models []historyModel
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, spanErr(span, fmt.Errorf("list histories: %w", err))
	}

	histories := make([]*entity.History, 0, len(models))
	for i := range models {
		histories = append(histories, models[i].toEntity())
	}
	return histories, nil
}
