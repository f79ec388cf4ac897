package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notegen-api/pkg/logger"
)

var tracer = otel.Tracer("messaging")

const defaultMaxLen = 100000

// Producer 向 Redis Streams 写入消息，流长度按 MaxLen 近似裁剪
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建生产者，maxLen <= 0 时使用默认上限
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 写入一条消息，返回流中的条目 ID
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish", trace.WithAttributes(
		attribute.String("stream", string(stream)),
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
	))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	span.SetAttributes(attribute.String("stream.message_id", id))
	return id, nil
}

// Dispatch 把生成交给 job-worker；实现 notegen.RunDispatcher
func (p *Producer) Dispatch(ctx context.Context, generationID string) error {
	userID, _ := ctx.Value(logger.UserIDKey).(string)
	msg, err := NewMessage(generationID, MessageTypeGenerationRun, userID, &GenerationRunMessage{GenerationID: generationID})
	if err != nil {
		return err
	}
	propagateLogContext(ctx, msg)

	id, err := p.Publish(ctx, StreamGenerationRun, msg)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "generation dispatched", "generation_id", generationID, "stream_id", id)
	return nil
}

// propagateLogContext 透传 request_id/trace_id，消费端据此恢复日志上下文
func propagateLogContext(ctx context.Context, msg *Message) {
	for key, ctxKey := range map[string]logger.ContextKey{
		"request_id": logger.RequestIDKey,
		"trace_id":   logger.TraceIDKey,
	} {
		if v, ok := ctx.Value(ctxKey).(string); ok && v != "" {
			msg.SetMetadata(key, v)
		}
	}
}
