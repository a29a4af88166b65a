// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 调用方输入不合法
	ErrorTypeValidation ErrorType = "validation_error"
	// 服务端配置缺失（例如模型凭证）
	ErrorTypeConfiguration ErrorType = "configuration_error"
	// 模型输出或模型调用失败
	ErrorTypeSynthesis ErrorType = "synthesis_error"
)

// DefaultSynthesisMessage 上游失败但没有可用信息时的提示
const DefaultSynthesisMessage = "Failed to synthesize a short blueprint. Please retry."

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string              // 用户友好的错误代码
	Fields  map[string][]string // 字段级校验错误
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, FormatFields(e.Fields))
	}
	// 消息里已包含底层错误时不再重复拼接
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建带字段明细的验证错误
func NewValidationError(message string, fields map[string][]string) *AppError {
	err := NewAppError(ErrorTypeValidation, message, nil)
	err.Fields = fields
	return err
}

// NewConfigurationError 创建配置错误
func NewConfigurationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, originalError)
}

// NewSynthesisError 创建合成错误
func NewSynthesisError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeSynthesis, message, originalError)
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsConfigurationError 检查是否为配置错误
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

// IsSynthesisError 检查是否为合成错误
func IsSynthesisError(err error) bool {
	return hasType(err, ErrorTypeSynthesis)
}

func hasType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// FieldErrors 提取字段级错误，非验证错误返回 nil
func FieldErrors(err error) map[string][]string {
	var appError *AppError
	if errors.As(err, &appError) && appError.Type == ErrorTypeValidation {
		return appError.Fields
	}
	return nil
}

// UserMessage 返回可直接展示给用户的错误文本
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var appError *AppError
	if !errors.As(err, &appError) {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			return msg
		}
		return "Unknown error"
	}

	switch appError.Type {
	case ErrorTypeValidation:
		if len(appError.Fields) > 0 {
			return FormatFields(appError.Fields)
		}
	case ErrorTypeSynthesis:
		if appError.Message == "" {
			return DefaultSynthesisMessage
		}
	}

	if appError.Message == "" {
		return "Unknown error"
	}
	return appError.Message
}

// FormatFields 将字段错误格式化为稳定顺序的单行文本
func FormatFields(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(fields[name], ", ")))
	}
	return strings.Join(parts, "; ")
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	case ErrorTypeSynthesis:
		return "SYNTHESIS_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
