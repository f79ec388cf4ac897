package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notegen-api/pkg/logger"
	"notegen-api/pkg/metrics"
)

// MessageHandler 消息处理函数，返回错误时消息留在 pending 中等待退避重试
type MessageHandler func(ctx context.Context, msg *Message) error

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream       Stream
	Group        ConsumerGroup
	ConsumerName string
	BlockTimeout time.Duration
	// ClaimInterval 检查其他消费者遗留消息的间隔
	ClaimInterval time.Duration
	// ReclaimIdle 其他消费者的消息空闲超过该时长才会被接管，须大于一次生成的耗时
	ReclaimIdle time.Duration
	RetryLimit  int
	Backoff     BackoffConfig
}

// Consumer Redis Streams 消费者。
// 一次生成可能持续数分钟，因此每次只读取一条消息，Stop 会等待正在处理的消息结束。
type Consumer struct {
	client *redis.Client
	cfg    ConsumerConfig

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	running  bool
	stopCh   chan struct{}
	done     sync.WaitGroup
}

// NewConsumer 创建消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	if cfg.ReclaimIdle <= 0 {
		cfg.ReclaimIdle = max(15*time.Minute, 2*cfg.Backoff.Max)
	}
	return &Consumer{
		client:   client,
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		stopCh:   make(chan struct{}),
	}
}

// RegisterHandler 按消息类型注册处理器
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	c.handlers[msgType] = handler
	c.mu.Unlock()
}

// Start 创建消费者组（已存在则忽略）并启动消费循环
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("consumer already running")
	}

	err := c.client.XGroupCreateMkStream(ctx, string(c.cfg.Stream), string(c.cfg.Group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	c.running = true
	c.done.Add(1)
	go func() {
		defer c.done.Done()
		c.loop(ctx)
	}()
	return nil
}

// Stop 停止读取新消息并等待当前消息处理完成
func (c *Consumer) Stop() {
	c.mu.Lock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
	c.mu.Unlock()
	c.done.Wait()
}

func (c *Consumer) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Consumer) loop(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("consumer started",
		"stream", string(c.cfg.Stream),
		"group", string(c.cfg.Group),
		"consumer", c.cfg.ConsumerName,
	)
	defer log.Info("consumer stopped", "stream", string(c.cfg.Stream))

	var lastReclaim time.Time
	for !c.stopped(ctx) {
		c.retryOwnPending(ctx)
		if time.Since(lastReclaim) >= c.cfg.ClaimInterval {
			c.reclaimStale(ctx)
			lastReclaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.cfg.Group),
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{string(c.cfg.Stream), ">"},
			Count:    1,
			Block:    c.cfg.BlockTimeout,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			log.Error("read stream failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, entry := range s.Messages {
				c.handle(ctx, entry)
			}
		}
	}
}

// decodeEntry 取出条目中的消息体；格式错误的条目无法重试
func decodeEntry(entry redis.XMessage) (*Message, error) {
	raw, ok := entry.Values["data"].(string)
	if !ok {
		return nil, errors.New("entry has no data field")
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

// withMessageContext 恢复生产端透传的日志上下文
func withMessageContext(ctx context.Context, msg *Message) context.Context {
	if msg.UserID != "" {
		ctx = logger.WithContext(ctx, logger.UserIDKey, msg.UserID)
	}
	if v := msg.GetMetadata("request_id"); v != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, v)
	}
	if v := msg.GetMetadata("trace_id"); v != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, v)
	}
	return ctx
}

func (c *Consumer) handle(ctx context.Context, entry redis.XMessage) {
	stream := string(c.cfg.Stream)
	ctx, span := tracer.Start(ctx, "consumer.handle", trace.WithAttributes(
		attribute.String("stream", stream),
		attribute.String("stream.message_id", entry.ID),
	))
	defer span.End()

	msg, err := decodeEntry(entry)
	if err != nil {
		logger.Error(ctx, "dropping malformed entry", err, "stream_id", entry.ID)
		c.ack(ctx, entry.ID)
		return
	}
	ctx = withMessageContext(ctx, msg)
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
	)

	c.mu.RLock()
	handler, ok := c.handlers[msg.Type]
	c.mu.RUnlock()
	if !ok {
		logger.Warn(ctx, "no handler for message type", "type", msg.Type)
		metrics.RedisStreamProcessed.WithLabelValues(stream, "skipped").Inc()
		c.ack(ctx, entry.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RedisStreamProcessed.WithLabelValues(stream, "failed").Inc()

		attempts := c.deliveryCount(ctx, entry.ID)
		if attempts >= c.cfg.RetryLimit {
			c.deadLetter(ctx, entry.ID, msg, err)
			return
		}
		logger.Warn(ctx, "message left pending for retry",
			"message_id", msg.ID, "attempts", attempts, "error", err.Error())
		return
	}

	metrics.RedisStreamProcessed.WithLabelValues(stream, "success").Inc()
	c.ack(ctx, entry.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.cfg.Stream), string(c.cfg.Group), id).Err(); err != nil {
		logger.Error(ctx, "ack failed", err, "stream_id", id)
	}
}

// deliveryCount 从 XPENDING 读取投递次数
func (c *Consumer) deliveryCount(ctx context.Context, id string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.cfg.Stream),
		Group:  string(c.cfg.Group),
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

// deadLetter 写入死信流后确认原消息；写入失败时保留在 pending 中
func (c *Consumer) deadLetter(ctx context.Context, id string, msg *Message, cause error) {
	body, _ := json.Marshal(map[string]any{
		"original_stream": string(c.cfg.Stream),
		"data":            msg,
		"error":           cause.Error(),
		"failed_at":       time.Now().Unix(),
	})
	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream.DLQStream(),
		Values: map[string]any{"data": string(body)},
	}).Err()
	if err != nil {
		logger.Error(ctx, "move to DLQ failed", err, "message_id", msg.ID)
		return
	}
	logger.Warn(ctx, "message moved to DLQ", "message_id", msg.ID, "error", cause.Error())
	metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), "dlq").Inc()
	c.ack(ctx, id)
}

// pending 列出 pending 条目，consumer 为空时列出整个组
func (c *Consumer) pending(ctx context.Context, consumer string) []redis.XPendingExt {
	entries, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: consumer,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error(ctx, "query pending failed", err)
	}
	return entries
}

// claim 把条目转到当前消费者名下；超过重试上限的直接进死信流，其余重新处理
func (c *Consumer) claim(ctx context.Context, p redis.XPendingExt, minIdle time.Duration) {
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Consumer: c.cfg.ConsumerName,
		MinIdle:  minIdle,
		Messages: []string{p.ID},
	}).Result()
	if err != nil {
		logger.Error(ctx, "claim failed", err, "stream_id", p.ID)
		return
	}

	for _, entry := range claimed {
		if int(p.RetryCount) < c.cfg.RetryLimit {
			c.handle(ctx, entry)
			continue
		}
		msg, err := decodeEntry(entry)
		if err != nil {
			c.ack(ctx, entry.ID)
			continue
		}
		c.deadLetter(ctx, entry.ID, msg, errors.New("message exceeded max retries"))
	}
}

// retryOwnPending 按退避时间重试本消费者名下失败的消息
func (c *Consumer) retryOwnPending(ctx context.Context) {
	for _, p := range c.pending(ctx, c.cfg.ConsumerName) {
		if c.stopped(ctx) {
			return
		}
		wait := time.Duration(0)
		if int(p.RetryCount) < c.cfg.RetryLimit {
			wait = c.cfg.Backoff.CalculateBackoff(int(p.RetryCount))
			if p.Idle < wait {
				continue
			}
		}
		c.claim(ctx, p, wait)
	}
}

// reclaimStale 接管已下线消费者长时间未确认的消息
func (c *Consumer) reclaimStale(ctx context.Context) {
	for _, p := range c.pending(ctx, "") {
		if c.stopped(ctx) {
			return
		}
		if p.Consumer == c.cfg.ConsumerName || p.Idle < c.cfg.ReclaimIdle {
			continue
		}
		c.claim(ctx, p, c.cfg.ReclaimIdle)
	}
}

// MonitorDLQ 每分钟检查死信流长度，超过阈值时告警
func (c *Consumer) MonitorDLQ(ctx context.Context, alertThreshold int64) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	dlq := c.cfg.Stream.DLQStream()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			n, err := c.client.XLen(ctx, dlq).Result()
			if err != nil {
				continue
			}
			metrics.RedisStreamDLQLength.WithLabelValues(string(c.cfg.Stream)).Set(float64(n))
			if n > alertThreshold {
				logger.Warn(ctx, "DLQ backlog above threshold", "stream", dlq, "count", n)
			}
		}
	}
}
