// Package messaging 用 Redis Streams 把生成运行投递给 job-worker
package messaging

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// MessageTypeGenerationRun 执行一次生成
const MessageTypeGenerationRun = "generation_run"

// Stream 流名称
type Stream string

// StreamGenerationRun 生成运行队列
const StreamGenerationRun Stream = "stream:notegen:run"

// DLQStream 对应的死信流
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组名称
type ConsumerGroup string

// ConsumerGroupRunWorker job-worker 使用的消费者组
const ConsumerGroupRunWorker ConsumerGroup = "cg-run-worker"

// GroupWithPrefix 同一 Redis 上部署多套环境时用前缀隔离消费者组
func GroupWithPrefix(prefix string, group ConsumerGroup) ConsumerGroup {
	if prefix == "" {
		return group
	}
	return ConsumerGroup(prefix + "-" + string(group))
}

// Message 流中 data 字段的信封
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// GenerationRunMessage generation_run 的载荷
type GenerationRunMessage struct {
	GenerationID string `json:"generation_id"`
}

// NewMessage 序列化载荷并构造信封
func NewMessage(id, msgType, userID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return &Message{
		ID:        id,
		Type:      msgType,
		UserID:    userID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 写入透传字段（request_id、trace_id）
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	m.Metadata[key] = value
}

// GetMetadata 读取透传字段，不存在时为空串
func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

// UnmarshalPayload 解码载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// BackoffConfig 失败消息重试的指数退避
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 1s 起步，每次翻倍，最长 1 分钟
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2}
}

// CalculateBackoff 第 retryCount 次重试前的等待时间，不超过 Max
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(retryCount))
	if c.Max > 0 && (d > float64(c.Max) || math.IsInf(d, 0)) {
		return c.Max
	}
	return time.Duration(d)
}
