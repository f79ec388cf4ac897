package notegen

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/workflow/catalog"
	wfmodel "notegen-api/internal/workflow/model"
	"notegen-api/internal/workflow/node"
	apperrors "notegen-api/pkg/errors"
	"notegen-api/pkg/logger"
)

const (
	// MinRawTextRunes 原文去除首尾空白后的最少字符数
	MinRawTextRunes = 50

	minSections     = 6
	maxSections     = 12
	runesPerSection = 200
)

// ErrRawTextTooShort 原文过短
var ErrRawTextTooShort = apperrors.New(apperrors.CodeInvalidParam, "article must be at least 50 characters")

// RewriteInput 改写请求
type RewriteInput struct {
	RawText    string
	ToneID     string
	FreePrompt string
}

// RewriteResult 改写结果
type RewriteResult struct {
	Sections      []entity.Section
	RewrittenText string
}

// Rewriter 调用改写服务并解析段落
type Rewriter struct {
	chain    RewriteInvoker
	provider string
}

func NewRewriter(chain RewriteInvoker, provider string) *Rewriter {
	return &Rewriter{chain: chain, provider: provider}
}

// ValidateRawText 校验原文长度
func ValidateRawText(rawText string) error {
	if node.TrimmedRuneLen(rawText) < MinRawTextRunes {
		return ErrRawTextTooShort
	}
	return nil
}

// TargetSectionCount 目标段落数 clamp(ceil(L/200), 6, 12)
func TargetSectionCount(runeLen int) int {
	n := int(math.Ceil(float64(runeLen) / runesPerSection))
	return min(max(n, minSections), maxSections)
}

// Rewrite 改写文章；上游不可用与解析失败分别返回 ErrUpstreamUnavailable 与 ErrUpstreamParse
func (r *Rewriter) Rewrite(ctx context.Context, in RewriteInput) (*RewriteResult, error) {
	if err := ValidateRawText(in.RawText); err != nil {
		return nil, err
	}

	count := TargetSectionCount(node.RuneLen(in.RawText))
	msg, err := r.chain.Invoke(ctx, &wfmodel.RewriteInput{
		Provider:        r.provider,
		RawText:         in.RawText,
		ToneInstruction: catalog.TonePrompt(in.ToneID),
		SectionCount:    count,
		FreePrompt:      in.FreePrompt,
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		logger.Warn(ctx, "rewrite upstream call failed", "provider", r.provider, "error", err.Error())
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if msg == nil {
		return nil, apperrors.ErrUpstreamParse
	}

	reply, err := node.DecodeRewriteReply(msg.Content)
	if err != nil {
		logger.Warn(ctx, "rewrite reply is malformed",
			"provider", r.provider,
			"error", err.Error(),
			"content", node.TruncateByRunes(msg.Content, 200),
		)
		return nil, apperrors.ErrUpstreamParse.WithError(err)
	}

	sections := normalizeSections(reply.Sections)
	logger.Info(ctx, "rewrite completed",
		"target_sections", count,
		"sections", len(sections),
	)
	return &RewriteResult{
		Sections:      sections,
		RewrittenText: JoinSectionText(sections),
	}, nil
}

// normalizeSections 保持返回的数组顺序并按位置编号为 1..N；缺失或重复的 ID 用位置补齐
func normalizeSections(in []wfmodel.ReplySection) []entity.Section {
	seen := make(map[string]struct{}, len(in))
	out := make([]entity.Section, 0, len(in))
	for i, s := range in {
		id := strings.TrimSpace(string(s.SectionID))
		if _, dup := seen[id]; id == "" || dup {
			id = uniqueID(strconv.Itoa(i+1), seen)
		}
		seen[id] = struct{}{}
		out = append(out, entity.NewSection(id, strings.TrimSpace(s.SectionText), i+1))
	}
	return out
}

func uniqueID(base string, seen map[string]struct{}) string {
	if _, ok := seen[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		id := base + "-" + strconv.Itoa(n)
		if _, ok := seen[id]; !ok {
			return id
		}
	}
}

// JoinSectionText 拼接全文，段落之间空一行
func JoinSectionText(sections []entity.Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n\n")
}

// userMessage 提取可展示给用户的错误信息
func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return apperrors.ErrGenerationFailed.Message
}
