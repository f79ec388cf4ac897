// Package dto HTTP 请求与响应结构
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "notegen-api/pkg/errors"
)

// TraceIDContextKey trace 中间件写入 gin.Context 的键
const TraceIDContextKey = "trace_id"

// Response 成功响应信封
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorDetail 机器可读的错误码与说明
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 错误响应信封
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

func ok[T any](c *gin.Context, status int, message string, data T) {
	c.JSON(status, Response[T]{
		Code:    status,
		Message: message,
		Data:    data,
		TraceID: c.GetString(TraceIDContextKey),
	})
}

func fail(c *gin.Context, status int, message string, detail *ErrorDetail) ErrorResponse {
	return ErrorResponse{
		Code:    status,
		Message: message,
		Error:   detail,
		TraceID: c.GetString(TraceIDContextKey),
	}
}

// Success 200
func Success[T any](c *gin.Context, data T) {
	ok(c, http.StatusOK, "success", data)
}

// Created 201
func Created[T any](c *gin.Context, data T) {
	ok(c, http.StatusCreated, "created", data)
}

// Accepted 202，生成已受理、结果通过进度流或轮询获取
func Accepted[T any](c *gin.Context, data T) {
	ok(c, http.StatusAccepted, "accepted", data)
}

// ErrorWithDetail 输出带错误码的错误响应
func ErrorWithDetail(c *gin.Context, status int, message string, detail *ErrorDetail) {
	c.JSON(status, fail(c, status, message, detail))
}

// InternalError 500
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, fail(c, http.StatusInternalServerError, message, nil))
}

// AbortWithError 中间件用：写入错误并终止后续处理
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, fail(c, status, message, nil))
}

// FromAppError 按 AppError 输出；包装的底层错误只进日志
func FromAppError(c *gin.Context, appErr *apperrors.AppError) {
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	ErrorWithDetail(c, status, appErr.Message, &ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}
