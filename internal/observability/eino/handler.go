// Package eino 把 Eino ChatModel 调用接入 Prometheus 指标与 OpenTelemetry 追踪
package eino

import (
	"context"
	"sync"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notegen-api/internal/domain/service"
	"notegen-api/pkg/metrics"
)

var registerOnce sync.Once

// Init 注册全局回调，进程内只生效一次
func Init() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler())
	})
}

// callState 一次模型调用从 OnStart 到 OnEnd/OnError 之间携带的标签
type callState struct {
	start    time.Time
	workflow string
	provider string
	model    string
}

type callStateKey struct{}

func (s *callState) observe(status string) {
	metrics.LLMCallTotal.WithLabelValues(s.workflow, s.provider, s.model, status).Inc()
	if !s.start.IsZero() {
		metrics.LLMCallDuration.WithLabelValues(s.workflow, s.provider, s.model).Observe(time.Since(s.start).Seconds())
	}
}

func stateFrom(ctx context.Context) *callState {
	if s, ok := ctx.Value(callStateKey{}).(*callState); ok {
		return s
	}
	// 没有经过 OnStart 的回调只计数，不计时
	return &callState{
		workflow: service.WorkflowFromContext(ctx),
		provider: service.ProviderFromContext(ctx),
		model:    service.UnknownLabel,
	}
}

func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: onStart,
		OnEnd:   onEnd,
		OnError: onError,
	}
}

func onStart(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
	s := &callState{
		start:    time.Now(),
		workflow: service.WorkflowFromContext(ctx),
		provider: service.ProviderFromContext(ctx),
		model:    service.UnknownLabel,
	}
	if input != nil && input.Config != nil && input.Config.Model != "" {
		s.model = input.Config.Model
	}

	attrs := []attribute.KeyValue{
		attribute.String("eino.workflow", s.workflow),
		attribute.String("llm.provider", s.provider),
		attribute.String("llm.model", s.model),
	}
	if info != nil {
		attrs = append(attrs, attribute.String("eino.node_name", info.Name), attribute.String("eino.type", info.Type))
	}
	ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	return context.WithValue(ctx, callStateKey{}, s)
}

func onEnd(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
	s := stateFrom(ctx)
	if output != nil && output.Config != nil && output.Config.Model != "" {
		s.model = output.Config.Model
	}
	s.observe("success")

	span := trace.SpanFromContext(ctx)
	if output != nil && output.TokenUsage != nil {
		usage := output.TokenUsage
		metrics.LLMTokensUsed.WithLabelValues(s.workflow, s.provider, s.model, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(s.workflow, s.provider, s.model, "completion").Add(float64(usage.CompletionTokens))
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	span.End()
	return ctx
}

func onError(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
	stateFrom(ctx).observe("error")

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
	return ctx
}
