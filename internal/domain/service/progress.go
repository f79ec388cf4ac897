package service

import (
	"context"
	"time"

	"notegen-api/internal/domain/entity"
)

// ProgressEvent 生成进度事件
type ProgressEvent struct {
	GenerationID string                `json:"generation_id"`
	Task         entity.GenerationTask `json:"task"`
	// Section 本次事件更新的段落（配图完成、失败或重试）
	Section *entity.Section `json:"section,omitempty"`
	// ResultReady 为 true 时结果已可读取
	ResultReady bool `json:"result_ready"`
	// Final 本次操作的最后一个事件；段落重试成功后任务回到 idle，靠它结束订阅
	Final bool      `json:"final,omitempty"`
	At    time.Time `json:"at"`
}

// Terminal 事件之后不会再有本次运行或重试的进度
func (e ProgressEvent) Terminal() bool {
	return e.Final || e.Task.Status.IsTerminal()
}

// ProgressBus 进度事件总线
type ProgressBus interface {
	// Publish 发布事件，无订阅者时丢弃
	Publish(ctx context.Context, event ProgressEvent) error

	// Subscribe 订阅某次生成的事件，返回的 cancel 必须调用以释放资源
	Subscribe(ctx context.Context, generationID string) (<-chan ProgressEvent, func(), error)
}
