// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1002"
	CodeConflict           ErrorCode = "1003"
	CodeInternalError      ErrorCode = "1004"
	CodeServiceUnavailable ErrorCode = "1005"

	// 会话错误 (2xxx)
	CodeSessionBusy      ErrorCode = "2001"
	CodeStepNotAllowed   ErrorCode = "2002"
	CodeFieldNotEditable ErrorCode = "2003"

	// 生成错误 (3xxx)
	CodeGenerationFailed   ErrorCode = "3001"
	CodeControlsOutOfRange ErrorCode = "3002"
	CodeProseServiceError  ErrorCode = "3003"
	CodeResultNotReady     ErrorCode = "3004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeControlsOutOfRange, CodeFieldNotEditable:
		return http.StatusBadRequest
	case CodeNotFound, CodeResultNotReady:
		return http.StatusNotFound
	case CodeConflict, CodeSessionBusy, CodeStepNotAllowed:
		return http.StatusConflict
	case CodeServiceUnavailable, CodeProseServiceError:
		return http.StatusServiceUnavailable
	case CodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrSessionBusy      = New(CodeSessionBusy, "a generation request is in flight")
	ErrStepNotAllowed   = New(CodeStepNotAllowed, "operation not allowed at current step")
	ErrFieldNotEditable = New(CodeFieldNotEditable, "field is not editable")

	ErrGenerationFailed   = New(CodeGenerationFailed, "prose generation failed")
	ErrControlsOutOfRange = New(CodeControlsOutOfRange, "generation controls out of range")
	ErrProseServiceError  = New(CodeProseServiceError, "prose service unavailable")
	ErrResultNotReady     = New(CodeResultNotReady, "no generation result yet")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
