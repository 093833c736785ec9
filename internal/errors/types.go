package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeBodyTooLarge   ErrorCode = "BODY_TOO_LARGE"

	// 嵌入服务错误
	ErrCodeEmbeddingUnreachable ErrorCode = "EMBEDDING_UNREACHABLE"
	ErrCodeEmbeddingProtocol    ErrorCode = "EMBEDDING_PROTOCOL"
	ErrCodeEmbeddingShape       ErrorCode = "EMBEDDING_SHAPE"

	// 向量库错误
	ErrCodeVectorStoreUnreachable ErrorCode = "VECTOR_STORE_UNREACHABLE"
	ErrCodeVectorStoreRejected    ErrorCode = "VECTOR_STORE_REJECTED"
	ErrCodeVectorStoreInternal    ErrorCode = "VECTOR_STORE_INTERNAL"

	// 集合不存在，仅在重建集合时视为无害
	ErrCodeCollectionNotFound ErrorCode = "COLLECTION_NOT_FOUND"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Type     ErrorType `json:"type"`
	HTTPCode int       `json:"-"`
	Cause    error     `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewExternalError 创建上游服务错误，对调用方统一表现为500
func NewExternalError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeBadRequest,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewBodyTooLargeError 创建请求体超限错误
func NewBodyTooLargeError(limit int64) *AppError {
	return &AppError{
		Code:     ErrCodeBodyTooLarge,
		Message:  fmt.Sprintf("request body exceeds %d bytes", limit),
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusRequestEntityTooLarge,
	}
}

// Embedding 构造嵌入服务错误
func Embedding(code ErrorCode, format string, args ...interface{}) *AppError {
	return NewExternalError(code, fmt.Sprintf(format, args...))
}

// VectorStore 构造向量库错误
func VectorStore(code ErrorCode, format string, args ...interface{}) *AppError {
	return NewExternalError(code, fmt.Sprintf(format, args...))
}

// IsAppError 检查是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}

// CodeOf 返回错误链上第一个AppError的错误码
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return GetAppError(err).Code
}

// HasCode 判断错误链上是否带有指定错误码
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsEmbeddingError 判断是否为嵌入服务错误
func IsEmbeddingError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeEmbeddingUnreachable, ErrCodeEmbeddingProtocol, ErrCodeEmbeddingShape:
		return true
	}
	return false
}

// IsVectorStoreError 判断是否为向量库错误
func IsVectorStoreError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeVectorStoreUnreachable, ErrCodeVectorStoreRejected, ErrCodeVectorStoreInternal, ErrCodeCollectionNotFound:
		return true
	}
	return false
}
