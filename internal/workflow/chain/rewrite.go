package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "notegen-api/internal/domain/service"
	wfmodel "notegen-api/internal/workflow/model"
	"notegen-api/internal/workflow/node"
	workflowport "notegen-api/internal/workflow/port"
	workflowprompt "notegen-api/internal/workflow/prompt"
	"notegen-api/pkg/logger"
)

const workflowRewrite = "rewrite"

type rewriteRunnable = compose.Runnable[*wfmodel.RewriteInput, *schema.Message]

// RewriteChain 编排 变量映射 -> 提示词模板 -> ChatModel
type RewriteChain struct {
	factory  workflowport.ChatModelFactory
	registry *workflowprompt.Registry

	mu        sync.Mutex
	runnables map[string]rewriteRunnable
}

func NewRewriteChain(factory workflowport.ChatModelFactory, registry *workflowprompt.Registry) *RewriteChain {
	if registry == nil {
		registry = workflowprompt.NewRegistry()
	}
	return &RewriteChain{
		factory:   factory,
		registry:  registry,
		runnables: make(map[string]rewriteRunnable),
	}
}

// Invoke 执行一次改写调用，返回模型原始消息。
// 优先要求 response_format=json_object；服务端不支持时降级为纯 Prompt 约束。
func (c *RewriteChain) Invoke(ctx context.Context, in *wfmodel.RewriteInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.RawText) == "" {
		return nil, fmt.Errorf("raw text is required")
	}
	if in.SectionCount <= 0 {
		return nil, fmt.Errorf("section_count is required")
	}

	provider := strings.TrimSpace(in.Provider)
	if provider == "" {
		provider = c.factory.DefaultProvider()
	}
	ctx = llmctx.WithWorkflowProvider(ctx, workflowRewrite, provider)

	runnable, err := c.runnable(ctx, provider)
	if err != nil {
		return nil, err
	}

	out, err := runnable.Invoke(ctx, in, compose.WithChatModelOption(buildRewriteModelOptions(true)...))
	if err != nil && node.IsResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm json_object not supported, fallback to prompt-only",
			"provider", provider,
			"error", err.Error(),
		)
		out, err = runnable.Invoke(ctx, in, compose.WithChatModelOption(buildRewriteModelOptions(false)...))
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return out, nil
}

func (c *RewriteChain) runnable(ctx context.Context, provider string) (rewriteRunnable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.runnables[provider]; ok {
		return r, nil
	}

	chatModel, err := c.factory.Get(ctx, provider)
	if err != nil {
		return nil, err
	}
	tpl, err := c.registry.ChatTemplate(workflowprompt.PromptRewriteV1)
	if err != nil {
		return nil, err
	}

	ch := compose.NewChain[*wfmodel.RewriteInput, *schema.Message]()
	ch.AppendLambda(compose.InvokableLambda(rewriteVars), compose.WithNodeName("rewrite.vars")).
		AppendChatTemplate(tpl, compose.WithNodeName("rewrite.template")).
		AppendChatModel(chatModel, compose.WithNodeName("rewrite.model"))

	r, err := ch.Compile(ctx, compose.WithGraphName("rewrite_chain"))
	if err != nil {
		return nil, fmt.Errorf("compile rewrite chain: %w", err)
	}
	c.runnables[provider] = r
	return r, nil
}

func rewriteVars(_ context.Context, in *wfmodel.RewriteInput) (map[string]any, error) {
	return map[string]any{
		"tone_instruction": strings.TrimSpace(in.ToneInstruction),
		"section_count":    in.SectionCount,
		"free_prompt":      strings.TrimSpace(in.FreePrompt),
		"raw_text":         strings.TrimSpace(in.RawText),
	}, nil
}

func buildRewriteModelOptions(jsonMode bool) []model.Option {
	if !jsonMode {
		return nil
	}
	return []model.Option{
		openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}),
	}
}
