package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"notegen-api/internal/application/notegen"
	"notegen-api/internal/domain/entity"
	"notegen-api/internal/interfaces/http/dto"
	"notegen-api/internal/interfaces/http/middleware"
	"notegen-api/pkg/logger"
)

// sseHeartbeat SSE 心跳间隔，防止代理断开空闲连接
const sseHeartbeat = 15 * time.Second

// GenerationHandler 改写、配图与完整生成流程
type GenerationHandler struct {
	rewriter     *notegen.Rewriter
	illustrator  *notegen.Illustrator
	orchestrator *notegen.Orchestrator
}

// NewGenerationHandler 创建生成处理器
func NewGenerationHandler(rewriter *notegen.Rewriter, illustrator *notegen.Illustrator, orchestrator *notegen.Orchestrator) *GenerationHandler {
	return &GenerationHandler{
		rewriter:     rewriter,
		illustrator:  illustrator,
		orchestrator: orchestrator,
	}
}

// Rewrite 单独改写
// @Summary 改写文章
// @Tags Generation
// @Accept json
// @Produce json
// @Param body body dto.RewriteRequest true "原文与语气"
// @Success 200 {object} dto.Response[dto.RewriteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/rewrite [post]
func (h *GenerationHandler) Rewrite(c *gin.Context) {
	var req dto.RewriteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.rewriter.Rewrite(c.Request.Context(), notegen.RewriteInput{
		RawText:    req.RawText,
		ToneID:     req.ToneID,
		FreePrompt: req.FreePrompt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, &dto.RewriteResponse{
		RewrittenText: result.RewrittenText,
		Sections:      result.Sections,
	})
}

// GenerateImage 单独为一段文字配图
// @Summary 段落配图
// @Tags Generation
// @Accept json
// @Produce json
// @Param body body dto.GenerateImageRequest true "段落与风格"
// @Success 200 {object} dto.Response[dto.GenerateImageResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/generate-image [post]
func (h *GenerationHandler) GenerateImage(c *gin.Context) {
	var req dto.GenerateImageRequest
	if !bindJSON(c, &req) {
		return
	}

	img, err := h.illustrator.Illustrate(c.Request.Context(), notegen.IllustrateInput{
		SectionText: req.SectionText,
		StyleID:     req.StyleID,
		FreePrompt:  req.FreePrompt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, &dto.GenerateImageResponse{
		ImageURL:    img.ImageURL,
		AuditStatus: img.AuditStatus,
	})
}

// StartGeneration 发起完整生成，立即返回快照，进度通过 events 接口或轮询获取
// @Summary 发起生成
// @Tags Generation
// @Accept json
// @Produce json
// @Param body body dto.StartGenerationRequest true "生成参数"
// @Success 202 {object} dto.Response[dto.GenerationResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/generations [post]
func (h *GenerationHandler) StartGeneration(c *gin.Context) {
	var req dto.StartGenerationRequest
	if !bindJSON(c, &req) {
		return
	}

	g, err := h.orchestrator.Start(c.Request.Context(), req.ToStartInput(middleware.UserID(c)))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Accepted(c, dto.ToGenerationResponse(g))
}

// GetGeneration 获取生成快照
// @Summary 生成详情
// @Tags Generation
// @Produce json
// @Param gid path string true "生成 ID"
// @Success 200 {object} dto.Response[dto.GenerationResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/generations/{gid} [get]
func (h *GenerationHandler) GetGeneration(c *gin.Context) {
	g, err := h.orchestrator.Get(c.Request.Context(), c.Param("gid"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToGenerationResponse(g))
}

// StreamEvents 以 SSE 推送进度；先推送当前快照，收到终态事件后结束
// @Summary 生成进度流
// @Tags Generation
// @Produce text/event-stream
// @Param gid path string true "生成 ID"
// @Success 200 "SSE stream"
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/generations/{gid}/events [get]
func (h *GenerationHandler) StreamEvents(c *gin.Context) {
	ctx := c.Request.Context()

	snapshot, events, cancel, err := h.orchestrator.Subscribe(ctx, c.Param("gid"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer cancel()

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("snapshot", dto.ToGenerationResponse(snapshot))
	c.Writer.Flush()
	if finished(snapshot) {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("progress", ev)
			return !ev.Terminal()

		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().Unix()})
			return true

		case <-ctx.Done():
			// 客户端断开，运行不受影响
			logger.Debug(ctx, "sse client disconnected")
			return false
		}
	})
}

// RetrySection 重新生成某一段的配图
// @Summary 重试段落配图
// @Tags Generation
// @Produce json
// @Param gid path string true "生成 ID"
// @Param sid path string true "段落 ID"
// @Success 200 {object} dto.Response[entity.Section]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/generations/{gid}/sections/{sid}/retry [post]
func (h *GenerationHandler) RetrySection(c *gin.Context) {
	section, err := h.orchestrator.RetrySection(c.Request.Context(), c.Param("gid"), c.Param("sid"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, section)
}

// finished 快照已是终态，或已执行过并回到 idle
func finished(g *entity.Generation) bool {
	if g.Task.Status.IsTerminal() {
		return true
	}
	return g.Task.Status == entity.GenerationStatusIdle && (g.ResultReady || g.CompletedAt != nil)
}
