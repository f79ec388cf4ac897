// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证授权错误 (2xxx)
	CodeTokenExpired       ErrorCode = "2001"
	CodeTokenInvalid       ErrorCode = "2002"
	CodeTokenMissing       ErrorCode = "2003"
	CodeInvalidCredentials ErrorCode = "2004"
	CodeDuplicateEmail     ErrorCode = "2005"
	CodeWeakPassword       ErrorCode = "2006"

	// 资源错误 (3xxx)
	CodeGenerationNotFound ErrorCode = "3001"
	CodeSectionNotFound    ErrorCode = "3002"
	CodeUserNotFound       ErrorCode = "3003"

	// 业务错误 (4xxx)
	CodeGenerationFailed     ErrorCode = "4001"
	CodeGenerationInProgress ErrorCode = "4002"
	CodeRetryFailed          ErrorCode = "4003"

	// 外部服务错误 (5xxx)
	CodeDatabaseError       ErrorCode = "5001"
	CodeCacheError          ErrorCode = "5002"
	CodeUpstreamUnavailable ErrorCode = "5003"
	CodeUpstreamParse       ErrorCode = "5004"
	CodeDownloadFailed      ErrorCode = "5005"
)

// AppError 携带错误码与 HTTP 状态的业务错误；Err 只进日志，不返回给客户端
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := "[" + string(e.Code) + "] " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is(err, ErrUpstreamParse) 对包装后的错误同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建应用错误
func New(code ErrorCode, message string) *AppError {
	return Wrap(nil, code, message)
}

// Wrap 用错误码包装底层错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

var statusByCode = map[ErrorCode]int{
	CodeInvalidParam:         http.StatusBadRequest,
	CodeWeakPassword:         http.StatusBadRequest,
	CodeUnauthorized:         http.StatusUnauthorized,
	CodeTokenExpired:         http.StatusUnauthorized,
	CodeTokenInvalid:         http.StatusUnauthorized,
	CodeTokenMissing:         http.StatusUnauthorized,
	CodeInvalidCredentials:   http.StatusUnauthorized,
	CodeForbidden:            http.StatusForbidden,
	CodeNotFound:             http.StatusNotFound,
	CodeGenerationNotFound:   http.StatusNotFound,
	CodeSectionNotFound:      http.StatusNotFound,
	CodeUserNotFound:         http.StatusNotFound,
	CodeConflict:             http.StatusConflict,
	CodeDuplicateEmail:       http.StatusConflict,
	CodeGenerationInProgress: http.StatusConflict,
	CodeTooManyRequests:      http.StatusTooManyRequests,
	CodeServiceUnavailable:   http.StatusServiceUnavailable,
	CodeUpstreamUnavailable:  http.StatusServiceUnavailable,
	CodeUpstreamParse:        http.StatusBadGateway,
}

// codeToHTTPStatus 未登记的错误码一律 500
func codeToHTTPStatus(code ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// 预定义错误
var (
	ErrInvalidParam  = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized  = New(CodeUnauthorized, "unauthorized")
	ErrNotFound      = New(CodeNotFound, "resource not found")
	ErrInternalError = New(CodeInternalError, "internal server error")

	ErrTokenExpired = New(CodeTokenExpired, "token expired")
	ErrTokenInvalid = New(CodeTokenInvalid, "token invalid")
	ErrTokenMissing = New(CodeTokenMissing, "token missing")

	// ErrInvalidCredentials 未知邮箱与密码错误共用同一提示
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid email or password")
	ErrDuplicateEmail     = New(CodeDuplicateEmail, "email already registered")
	ErrWeakPassword       = New(CodeWeakPassword, "password must be at least 6 characters")

	ErrGenerationNotFound   = New(CodeGenerationNotFound, "generation not found")
	ErrSectionNotFound      = New(CodeSectionNotFound, "section not found")
	ErrUserNotFound         = New(CodeUserNotFound, "user not found")
	ErrGenerationInProgress = New(CodeGenerationInProgress, "generation is still running")

	ErrGenerationFailed    = New(CodeGenerationFailed, "generation failed")
	ErrRetryFailed         = New(CodeRetryFailed, "image regeneration failed, please try again")
	ErrUpstreamUnavailable = New(CodeUpstreamUnavailable, "service temporarily unavailable, please try again later")
	ErrUpstreamParse       = New(CodeUpstreamParse, "upstream returned an unexpected response")
	ErrDownloadFailed      = New(CodeDownloadFailed, "download failed")
)

// IsAppError 检查错误链中是否包含 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 取错误链中的 AppError，没有时包装为 CodeUnknown
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// IsCode 判断错误链中是否存在指定错误码
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
