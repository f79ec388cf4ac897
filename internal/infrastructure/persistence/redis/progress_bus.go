package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"notegen-api/internal/domain/service"
	"notegen-api/pkg/logger"
)

const progressChannelPrefix = "notegen:progress:"

// ProgressBus 基于 Redis Pub/Sub 的进度总线，API 与 job-worker 分进程部署时使用
type ProgressBus struct {
	client *Client
}

// NewProgressBus 创建进度总线
func NewProgressBus(client *Client) *ProgressBus {
	return &ProgressBus{client: client}
}

func progressChannel(generationID string) string {
	return progressChannelPrefix + generationID
}

// Publish 发布进度事件
func (b *ProgressBus) Publish(ctx context.Context, event service.ProgressEvent) error {
	ctx, span := tracer.Start(ctx, "redis.ProgressBus.Publish")
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	if err := b.client.rdb.Publish(ctx, progressChannel(event.GenerationID), payload).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish progress event: %w", err)
	}
	return nil
}

// Subscribe 订阅进度事件
func (b *ProgressBus) Subscribe(ctx context.Context, generationID string) (<-chan service.ProgressEvent, func(), error) {
	pubsub := b.client.rdb.Subscribe(ctx, progressChannel(generationID))
	// 等待订阅确认，避免错过紧随其后的事件
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe progress: %w", err)
	}

	out := make(chan service.ProgressEvent, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event service.ProgressEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Warn(ctx, "drop malformed progress event", "channel", msg.Channel, "error", err.Error())
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}
