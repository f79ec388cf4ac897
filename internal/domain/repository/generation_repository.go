package repository

import (
	"context"

	"notegen-api/internal/domain/entity"
)

// GenerationRepository 运行状态存储（带 TTL，非持久化）
type GenerationRepository interface {
	// Save 写入完整快照
	Save(ctx context.Context, generation *entity.Generation) error

	// Get 获取快照，不存在时返回 ErrGenerationNotFound
	Get(ctx context.Context, id string) (*entity.Generation, error)

	// Update 原子地读取、修改并写回快照；fn 返回错误时不写入
	Update(ctx context.Context, id string, fn func(g *entity.Generation) error) (*entity.Generation, error)
}
