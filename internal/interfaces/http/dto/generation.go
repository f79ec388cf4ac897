package dto

import (
	"time"

	"notegen-api/internal/application/notegen"
	"notegen-api/internal/domain/entity"
	"notegen-api/internal/workflow/catalog"
)

// CatalogResponse 语气与风格预设
type CatalogResponse struct {
	Tones  []catalog.Tone  `json:"tones"`
	Styles []catalog.Style `json:"styles"`
}

// RewriteRequest 单独调用改写
type RewriteRequest struct {
	RawText    string `json:"rawText"`
	ToneID     string `json:"toneId" binding:"max=32"`
	FreePrompt string `json:"freePrompt" binding:"max=500"`
}

// RewriteResponse 改写结果
type RewriteResponse struct {
	RewrittenText string           `json:"rewritten_text"`
	Sections      []entity.Section `json:"sections"`
}

// GenerateImageRequest 单独为一段文字配图
type GenerateImageRequest struct {
	SectionText string `json:"sectionText"`
	StyleID     string `json:"styleId" binding:"max=32"`
	FreePrompt  string `json:"freePrompt" binding:"max=500"`
}

// GenerateImageResponse 配图结果
type GenerateImageResponse struct {
	ImageURL    string             `json:"image_url"`
	AuditStatus entity.AuditStatus `json:"audit_status"`
}

// StartGenerationRequest 发起一次完整生成，saveHistory 省略时为 true
type StartGenerationRequest struct {
	RawText     string `json:"rawText"`
	ToneID      string `json:"toneId" binding:"max=32"`
	StyleID     string `json:"styleId" binding:"max=32"`
	FreePrompt  string `json:"freePrompt" binding:"max=500"`
	SaveHistory *bool  `json:"saveHistory"`
}

// ToStartInput 转换为编排器输入
func (r *StartGenerationRequest) ToStartInput(userID string) notegen.StartInput {
	save := true
	if r.SaveHistory != nil {
		save = *r.SaveHistory
	}
	return notegen.StartInput{
		UserID:      userID,
		RawText:     r.RawText,
		ToneID:      r.ToneID,
		StyleID:     r.StyleID,
		FreePrompt:  r.FreePrompt,
		SaveHistory: save,
	}
}

// GenerationResponse 生成快照
type GenerationResponse struct {
	ID          string                `json:"id"`
	ToneID      string                `json:"tone_id"`
	StyleID     string                `json:"style_id,omitempty"`
	Task        entity.GenerationTask `json:"task"`
	Sections    []entity.Section      `json:"sections"`
	FullText    string                `json:"full_text"`
	ResultReady bool                  `json:"result_ready"`
	HistoryID   string                `json:"history_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ToGenerationResponse 转换生成快照
func ToGenerationResponse(g *entity.Generation) *GenerationResponse {
	if g == nil {
		return nil
	}
	sections := g.Sections
	if sections == nil {
		sections = []entity.Section{}
	}
	return &GenerationResponse{
		ID:          g.ID,
		ToneID:      g.ToneID,
		StyleID:     g.StyleID,
		Task:        g.Task,
		Sections:    sections,
		FullText:    notegen.JoinSectionText(sections),
		ResultReady: g.ResultReady,
		HistoryID:   g.HistoryID,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}
