package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"notegen-api/internal/interfaces/http/dto"
	apperrors "notegen-api/pkg/errors"
	"notegen-api/pkg/logger"
)

// respondError 统一输出业务错误；5xx 记录错误日志，4xx 只记调试日志
func respondError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeUnknown {
		appErr = apperrors.ErrInternalError.WithError(err)
	}

	ctx := c.Request.Context()
	if appErr.HTTPStatus >= 500 {
		logger.Error(ctx, "request failed", err,
			"path", c.FullPath(),
			"error_code", string(appErr.Code),
		)
	} else {
		logger.Debug(ctx, "request rejected",
			"path", c.FullPath(),
			"error_code", string(appErr.Code),
			"error", err.Error(),
		)
	}
	dto.FromAppError(c, appErr)
}

// bindJSON 绑定请求体，失败时直接返回 400
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.ErrorWithDetail(c, http.StatusBadRequest, "invalid request body", &dto.ErrorDetail{
			ErrorCode: string(apperrors.CodeInvalidParam),
			Details:   err.Error(),
		})
		return false
	}
	return true
}
