package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"notegen-api/internal/domain/service"
	"notegen-api/pkg/metrics"
)

func TestChatModelCallbacksRecordUsage(t *testing.T) {
	ctx := service.WithWorkflowProvider(context.Background(), "rewrite-test", "openai")
	input := &model.CallbackInput{Config: &model.Config{Model: "gpt-test"}}

	ctx = onStart(ctx, nil, input)
	onEnd(ctx, nil, &model.CallbackOutput{TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 30}})

	if got := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("rewrite-test", "openai", "gpt-test", "success")); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("rewrite-test", "openai", "gpt-test", "completion")); got != 30 {
		t.Fatalf("completion tokens = %v", got)
	}
}

func TestChatModelCallbacksRecordError(t *testing.T) {
	ctx := service.WithWorkflowProvider(context.Background(), "rewrite-err", "openai")
	ctx = onStart(ctx, nil, nil)
	onError(ctx, nil, errors.New("upstream 502"))

	if got := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("rewrite-err", "openai", service.UnknownLabel, "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
}

func TestErrorWithoutStartIsCounted(t *testing.T) {
	onError(context.Background(), nil, errors.New("boom"))
	if got := testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues(service.UnknownLabel, service.UnknownLabel, service.UnknownLabel, "error")); got < 1 {
		t.Fatalf("error count = %v", got)
	}
}
