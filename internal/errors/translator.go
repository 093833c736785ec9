package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TranslateEmbedding 将嵌入服务调用错误转换为AppError
func TranslateEmbedding(err error) *AppError {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return GetAppError(err)
	}
	if isTransportError(err) {
		return Embedding(ErrCodeEmbeddingUnreachable, "embedding service unreachable").WithCause(err)
	}
	return Embedding(ErrCodeEmbeddingProtocol, "embedding service protocol error").WithCause(err)
}

// TranslateVectorStore 将向量库调用错误（gRPC或网络层）转换为AppError
func TranslateVectorStore(op string, err error) *AppError {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return GetAppError(err)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return VectorStore(ErrCodeVectorStoreUnreachable, "vector store %s: unreachable", op).WithCause(err)
		case codes.NotFound:
			return VectorStore(ErrCodeCollectionNotFound, "vector store %s: collection not found", op).WithCause(err)
		case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists, codes.OutOfRange:
			return VectorStore(ErrCodeVectorStoreRejected, "vector store %s: rejected", op).WithCause(err)
		default:
			return VectorStore(ErrCodeVectorStoreInternal, "vector store %s: internal error", op).WithCause(err)
		}
	}

	if isTransportError(err) {
		return VectorStore(ErrCodeVectorStoreUnreachable, "vector store %s: unreachable", op).WithCause(err)
	}
	return VectorStore(ErrCodeVectorStoreInternal, "vector store %s: internal error", op).WithCause(err)
}

// TranslateVectorStoreStatus 将REST接口的HTTP状态码转换为AppError
func TranslateVectorStoreStatus(op string, statusCode int, body string) *AppError {
	cause := fmt.Errorf("HTTP %d: %s", statusCode, strings.TrimSpace(body))
	switch {
	case statusCode == http.StatusNotFound:
		return VectorStore(ErrCodeCollectionNotFound, "vector store %s: collection not found", op).WithCause(cause)
	case statusCode >= 400 && statusCode < 500:
		return VectorStore(ErrCodeVectorStoreRejected, "vector store %s: rejected", op).WithCause(cause)
	default:
		return VectorStore(ErrCodeVectorStoreInternal, "vector store %s: internal error", op).WithCause(cause)
	}
}

// AsRejected 将“集合不存在”提升为拒绝错误，用于除删除以外的操作；返回副本，不修改入参
func AsRejected(err *AppError) *AppError {
	if err == nil || err.Code != ErrCodeCollectionNotFound {
		return err
	}
	rejected := *err
	rejected.Code = ErrCodeVectorStoreRejected
	return &rejected
}

// isTransportError 判断是否为网络层或超时错误
func isTransportError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "connection reset")
}

// ValidationMessage 获取验证错误消息
func ValidationMessage(fieldError validator.FieldError) string {
	field := fieldError.Namespace()
	tag := fieldError.Tag()

	switch tag {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	case "hostname_port":
		return field + " must be a host:port address"
	case "gt":
		return field + " must be greater than " + fieldError.Param()
	case "gte":
		return field + " must be greater than or equal to " + fieldError.Param()
	case "lte":
		return field + " must be less than or equal to " + fieldError.Param()
	case "oneof":
		return field + " must be one of: " + fieldError.Param()
	default:
		return field + " is invalid"
	}
}

// TranslateValidation 将validator错误合并为一条可读的验证错误
func TranslateValidation(err error) *AppError {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		msgs = append(msgs, ValidationMessage(fieldError))
	}
	return NewValidationError(strings.Join(msgs, "; ")).WithCause(err)
}
