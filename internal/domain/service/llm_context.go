package service

import (
	"context"
	"strings"
)

// UnknownLabel 上下文缺少标签时的指标取值
const UnknownLabel = "unknown"

type llmLabelKey string

const (
	workflowLabel llmLabelKey = "llm_workflow"
	providerLabel llmLabelKey = "llm_provider"
)

// WithWorkflowProvider 为一次模型调用标记所属工作流与服务商，供回调写入指标与 span
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	ctx = withLabel(ctx, workflowLabel, workflow)
	return withLabel(ctx, providerLabel, provider)
}

// WorkflowFromContext 读取工作流标签
func WorkflowFromContext(ctx context.Context) string {
	return labelFromContext(ctx, workflowLabel)
}

// ProviderFromContext 读取服务商标签
func ProviderFromContext(ctx context.Context) string {
	return labelFromContext(ctx, providerLabel)
}

func withLabel(ctx context.Context, key llmLabelKey, value string) context.Context {
	if ctx == nil {
		return nil
	}
	if value = strings.TrimSpace(value); value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func labelFromContext(ctx context.Context, key llmLabelKey) string {
	if ctx == nil {
		return UnknownLabel
	}
	if s, ok := ctx.Value(key).(string); ok && s != "" {
		return s
	}
	return UnknownLabel
}
