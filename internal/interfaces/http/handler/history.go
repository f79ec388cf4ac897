package handler

import (
	"github.com/gin-gonic/gin"

	"notegen-api/internal/application/history"
	"notegen-api/internal/interfaces/http/dto"
	"notegen-api/internal/interfaces/http/middleware"
)

// HistoryHandler 生成历史处理器，路由必须挂在 RequireAuth 之后
type HistoryHandler struct {
	svc *history.Service
}

// NewHistoryHandler 创建历史处理器
func NewHistoryHandler(svc *history.Service) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// ListHistories 获取当前用户最近的历史
// @Summary 历史列表
// @Tags History
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response[dto.HistoryListResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/history [get]
func (h *HistoryHandler) ListHistories(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToHistoryListResponse(items))
}

// SaveHistory 保存一条历史
// @Summary 保存历史
// @Tags History
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SaveHistoryRequest true "原文与结果"
// @Success 201 {object} dto.Response[dto.SaveHistoryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/history [post]
func (h *HistoryHandler) SaveHistory(c *gin.Context) {
	var req dto.SaveHistoryRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.svc.Save(c.Request.Context(), middleware.UserID(c), req.RawText, req.ResultJSON)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Created(c, &dto.SaveHistoryResponse{
		Success: true,
		History: dto.ToHistoryResponse(record),
	})
}
