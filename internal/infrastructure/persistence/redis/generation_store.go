package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"notegen-api/internal/domain/entity"
	apperrors "notegen-api/pkg/errors"
)

const (
	generationKeyPrefix = "notegen:generation:"
	// maxUpdateAttempts 乐观事务冲突时的最大尝试次数
	maxUpdateAttempts = 8
)

// GenerationStore 基于 Redis 的运行状态存储，值为 JSON 快照
type GenerationStore struct {
	client *Client
	ttl    time.Duration
}

// NewGenerationStore 创建运行状态存储
func NewGenerationStore(client *Client, ttl time.Duration) *GenerationStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &GenerationStore{client: client, ttl: ttl}
}

func generationKey(id string) string {
	return generationKeyPrefix + id
}

// Save 写入完整快照并刷新 TTL
func (s *GenerationStore) Save(ctx context.Context, generation *entity.Generation) error {
	payload, err := json.Marshal(generation)
	if err != nil {
		return fmt.Errorf("failed to marshal generation: %w", err)
	}
	if err := s.client.rdb.Set(ctx, generationKey(generation.ID), payload, s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save generation")
	}
	return nil
}

// Get 读取快照
func (s *GenerationStore) Get(ctx context.Context, id string) (*entity.Generation, error) {
	raw, err := s.client.rdb.Get(ctx, generationKey(id)).Bytes()
	if err != nil {
		if IsNil(err) {
			return nil, apperrors.ErrGenerationNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load generation")
	}

	var generation entity.Generation
	if err := json.Unmarshal(raw, &generation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation: %w", err)
	}
	return &generation, nil
}

// Update 在 WATCH 事务中读改写；同一 key 在提交前被其他进程改动时重新读取并重放 fn
func (s *GenerationStore) Update(ctx context.Context, id string, fn func(g *entity.Generation) error) (*entity.Generation, error) {
	key := generationKey(id)

	var updated *entity.Generation
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if IsNil(err) {
				return apperrors.ErrGenerationNotFound
			}
			return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load generation")
		}
		var generation entity.Generation
		if err := json.Unmarshal(raw, &generation); err != nil {
			return fmt.Errorf("failed to unmarshal generation: %w", err)
		}
		if err := fn(&generation); err != nil {
			return err
		}
		payload, err := json.Marshal(&generation)
		if err != nil {
			return fmt.Errorf("failed to marshal generation: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &generation
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.rdb.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case apperrors.IsAppError(err):
			return nil, err
		default:
			return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save generation")
		}
	}
	return nil, apperrors.New(apperrors.CodeCacheError, "generation update conflicted too many times")
}
