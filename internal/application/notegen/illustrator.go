package notegen

import (
	"context"
	"strings"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/workflow/catalog"
	"notegen-api/internal/workflow/node"
	workflowprompt "notegen-api/internal/workflow/prompt"
	apperrors "notegen-api/pkg/errors"
)

// excerptRunes 配图提示词中段落摘录的长度
const excerptRunes = 100

// IllustrateInput 配图请求；StyleID 为空时使用通用风格
type IllustrateInput struct {
	SectionText string
	StyleID     string
	FreePrompt  string
}

// Illustration 配图结果
type Illustration struct {
	ImageURL    string
	AuditStatus entity.AuditStatus
}

// Illustrator 为单个段落生成配图，不做内部重试
type Illustrator struct {
	provider ImageProvider
	prompts  *workflowprompt.Registry
}

func NewIllustrator(provider ImageProvider, prompts *workflowprompt.Registry) *Illustrator {
	if prompts == nil {
		prompts = workflowprompt.NewRegistry()
	}
	return &Illustrator{provider: provider, prompts: prompts}
}

// BuildPrompt 组装配图提示词
func (i *Illustrator) BuildPrompt(ctx context.Context, in IllustrateInput) (string, error) {
	return i.prompts.RenderText(ctx, workflowprompt.PromptImageV1, map[string]any{
		"excerpt":           node.TruncateByRunes(strings.TrimSpace(in.SectionText), excerptRunes),
		"style_instruction": catalog.StylePrompt(in.StyleID),
		"free_prompt":       strings.TrimSpace(in.FreePrompt),
	})
}

// Illustrate 生成配图
func (i *Illustrator) Illustrate(ctx context.Context, in IllustrateInput) (*Illustration, error) {
	if strings.TrimSpace(in.SectionText) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("section text is required")
	}

	prompt, err := i.BuildPrompt(ctx, in)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to build image prompt")
	}

	url, err := i.provider.Generate(ctx, prompt)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if strings.TrimSpace(url) == "" {
		return nil, apperrors.ErrUpstreamParse
	}
	return &Illustration{ImageURL: url, AuditStatus: entity.AuditStatusPass}, nil
}
