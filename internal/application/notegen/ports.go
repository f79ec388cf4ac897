// Package notegen 编排文章改写与分段配图的生成流程
package notegen

import (
	"context"

	"github.com/cloudwego/eino/schema"

	wfmodel "notegen-api/internal/workflow/model"
)

// RewriteInvoker 改写链路（eino chain）的最小依赖
type RewriteInvoker interface {
	Invoke(ctx context.Context, in *wfmodel.RewriteInput) (*schema.Message, error)
}

// ImageProvider 文生图服务，返回图片 URL
type ImageProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RunDispatcher 将运行投递到其他进程执行（如 job-worker）
type RunDispatcher interface {
	Dispatch(ctx context.Context, generationID string) error
}
