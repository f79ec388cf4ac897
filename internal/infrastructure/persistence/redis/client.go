// Package redis 提供基于 Redis 的运行状态、进度总线、缓存与限流
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notegen-api/internal/config"
)

var tracer = otel.Tracer("redis")

// Client Redis 客户端，所有命令经 tracingHook 产生 span
type Client struct {
	rdb *redis.Client
}

// NewClient 按配置连接 Redis 并探活
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", rdb.Options().Addr, err)
	}
	return NewClientFromRedis(rdb), nil
}

// NewClientFromRedis 包装已有的 go-redis 客户端（测试与 worker 共用）
func NewClientFromRedis(rdb *redis.Client) *Client {
	rdb.AddHook(tracingHook{})
	return &Client{rdb: rdb}
}

// Redis 返回底层客户端，供 Streams 生产者与消费者使用
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Close 关闭连接池
func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 就绪探针
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}

// IsNil 键不存在
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// tracingHook 为每条命令与 pipeline 记录 span；键不存在不算错误
type tracingHook struct{}

func (tracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (tracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := tracer.Start(ctx, "redis."+cmd.Name(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("db.system", "redis")))
		defer span.End()

		err := next(ctx, cmd)
		recordRedisError(span, err)
		return err
	}
}

func (tracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", "redis"),
				attribute.Int("redis.pipeline_length", len(cmds)),
			))
		defer span.End()

		err := next(ctx, cmds)
		recordRedisError(span, err)
		return err
	}
}

func recordRedisError(span trace.Span, err error) {
	if err == nil || IsNil(err) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
