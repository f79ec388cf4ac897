// Package memory 提供进程内的运行状态存储与进度总线，单进程部署与测试使用
package memory

import (
	"context"
	"sync"
	"time"

	"notegen-api/internal/domain/entity"
	apperrors "notegen-api/pkg/errors"
)

type storedGeneration struct {
	generation *entity.Generation
	expiresAt  time.Time
}

// GenerationStore 进程内运行状态存储
type GenerationStore struct {
	mu    sync.RWMutex
	items map[string]storedGeneration
	ttl   time.Duration
	now   func() time.Time
}

// NewGenerationStore 创建存储，ttl <= 0 表示不过期
func NewGenerationStore(ttl time.Duration) *GenerationStore {
	return &GenerationStore{
		items: make(map[string]storedGeneration),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Save 保存快照副本
func (s *GenerationStore) Save(_ context.Context, generation *entity.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := storedGeneration{generation: generation.Clone()}
	if s.ttl > 0 {
		item.expiresAt = s.now().Add(s.ttl)
	}
	s.items[generation.ID] = item
	s.evictExpiredLocked()
	return nil
}

// Get 返回快照副本
func (s *GenerationStore) Get(_ context.Context, id string) (*entity.Generation, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()

	if !ok || s.expired(item) {
		return nil, apperrors.ErrGenerationNotFound
	}
	return item.generation.Clone(), nil
}

// Update 在存储锁内读改写，fn 出错时不落盘
func (s *GenerationStore) Update(_ context.Context, id string, fn func(g *entity.Generation) error) (*entity.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || s.expired(item) {
		return nil, apperrors.ErrGenerationNotFound
	}
	generation := item.generation.Clone()
	if err := fn(generation); err != nil {
		return nil, err
	}
	item.generation = generation
	if s.ttl > 0 {
		item.expiresAt = s.now().Add(s.ttl)
	}
	s.items[id] = item
	return generation.Clone(), nil
}

func (s *GenerationStore) expired(item storedGeneration) bool {
	return !item.expiresAt.IsZero() && s.now().After(item.expiresAt)
}

func (s *GenerationStore) evictExpiredLocked() {
	for id, item := range s.items {
		if s.expired(item) {
			delete(s.items, id)
		}
	}
}
