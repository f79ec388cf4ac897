package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/domain/repository"
	"notegen-api/pkg/logger"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache JSON 读穿缓存；同一 key 的并发未命中只回源一次
type Cache struct {
	client *Client
	flight singleflight.Group
}

// NewCache 创建缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Fetch 命中时把缓存值解码到 dst，未命中时调用 load 回源并回填
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, dst any, load func(context.Context) (any, error)) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Fetch", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return json.Unmarshal(raw, dst)
	case !IsNil(err):
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, shared := c.flight.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode cache value: %w", err)
		}
		if err := c.client.rdb.Set(ctx, key, encoded, ttl).Err(); err != nil {
			logger.Warn(ctx, "cache fill failed", "key", key, "error", err.Error())
		}
		return encoded, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return err
	}
	return json.Unmarshal(v.([]byte), dst)
}

// Version 读取命名空间版本号，不存在时为 0
func (c *Cache) Version(ctx context.Context, namespace string) (int64, error) {
	n, err := c.client.rdb.Get(ctx, versionKey(namespace)).Int64()
	if IsNil(err) {
		return 0, nil
	}
	return n, err
}

// Bump 递增命名空间版本号，旧版本下的 key 随 TTL 自然过期
func (c *Cache) Bump(ctx context.Context, namespace string) error {
	return c.client.rdb.Incr(ctx, versionKey(namespace)).Err()
}

func versionKey(namespace string) string {
	return "cachever:" + namespace
}

// CachedHistoryRepository 历史列表读缓存；写入后递增该用户的版本号
type CachedHistoryRepository struct {
	repository.HistoryRepository
	cache *Cache
	ttl   time.Duration
}

var _ repository.HistoryRepository = (*CachedHistoryRepository)(nil)

// NewCachedHistoryRepository 包装底层仓储
func NewCachedHistoryRepository(next repository.HistoryRepository, cache *Cache, ttl time.Duration) *CachedHistoryRepository {
	return &CachedHistoryRepository{HistoryRepository: next, cache: cache, ttl: ttl}
}

func historyNamespace(userID string) string {
	return "history:" + userID
}

// Create 写库成功后使该用户的列表缓存失效
func (r *CachedHistoryRepository) Create(ctx context.Context, history *entity.History) error {
	if err := r.HistoryRepository.Create(ctx, history); err != nil {
		return err
	}
	if err := r.cache.Bump(ctx, historyNamespace(history.UserID)); err != nil {
		logger.Warn(ctx, "history cache invalidation failed", "user_id", history.UserID, "error", err.Error())
	}
	return nil
}

// ListByUser 缓存不可用时直接查库
func (r *CachedHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.History, error) {
	ns := historyNamespace(userID)
	ver, err := r.cache.Version(ctx, ns)
	if err != nil {
		logger.Warn(ctx, "history cache unavailable", "user_id", userID, "error", err.Error())
		return r.HistoryRepository.ListByUser(ctx, userID, limit)
	}

	key := ns + ":v" + strconv.FormatInt(ver, 10) + ":" + strconv.Itoa(limit)
	var (
		histories []*entity.History
		loadErr   error
	)
	err = r.cache.Fetch(ctx, key, r.ttl, &histories, func(ctx context.Context) (any, error) {
		list, err := r.HistoryRepository.ListByUser(ctx, userID, limit)
		loadErr = err
		return list, err
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if err != nil {
		logger.Warn(ctx, "history cache unavailable", "user_id", userID, "error", err.Error())
		return r.HistoryRepository.ListByUser(ctx, userID, limit)
	}
	return histories, nil
}
