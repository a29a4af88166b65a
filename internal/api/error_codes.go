// internal/api/error_codes.go
package api

import (
	"errors"

	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
)

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"

	// 蓝图生成相关错误
	ErrorValidation    = "VALIDATION_ERROR"
	ErrorConfiguration = "CONFIGURATION_ERROR"
	ErrorSynthesis     = "SYNTHESIS_ERROR"

	// 工作室连接相关错误
	ErrorSubmissionInFlight = "SUBMISSION_IN_FLIGHT"
	ErrorInvalidMessage     = "INVALID_MESSAGE"
	ErrorUnknownMessageType = "UNKNOWN_MESSAGE_TYPE"
	ErrorUnknownBriefField  = "UNKNOWN_BRIEF_FIELD"
	ErrorCopyFailed         = "COPY_FAILED"
)

// errorCodeFor 从 AppError 中取出错误代码
func errorCodeFor(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return ErrorInternalError
}
