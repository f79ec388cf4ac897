// Package port 定义工作流层依赖的外部能力
package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 按服务名提供改写使用的 ChatModel
type ChatModelFactory interface {
	// Get 返回指定服务的模型，name 为空时使用默认服务
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
	// DefaultProvider 默认服务名，用于指标与日志标签
	DefaultProvider() string
}
