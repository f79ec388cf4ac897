package handler

import (
	"github.com/gin-gonic/gin"

	"notegen-api/internal/interfaces/http/dto"
	"notegen-api/internal/workflow/catalog"
)

// CatalogHandler 语气与风格预设
type CatalogHandler struct{}

// NewCatalogHandler 创建预设处理器
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// GetCatalog 返回全部语气与风格
// @Summary 预设列表
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.Response[dto.CatalogResponse]
// @Router /v1/catalog [get]
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	dto.Success(c, &dto.CatalogResponse{
		Tones:  catalog.Tones(),
		Styles: catalog.Styles(),
	})
}
