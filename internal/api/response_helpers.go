// internal/api/response_helpers.go
package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusOK, response)
}

// 形似密钥的片段，例如 sk-xxxx 或 Bearer xxxx
var secretPattern = regexp.MustCompile(`(sk-[A-Za-z0-9_\-]{8,}|Bearer\s+[A-Za-z0-9._\-]{8,})`)

// sanitizeErrorMessage 屏蔽错误信息中的凭证
func sanitizeErrorMessage(message string) string {
	return secretPattern.ReplaceAllString(message, "[redacted]")
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: sanitizeErrorMessage(message),
	}

	if len(details) > 0 {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, resource string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, resource+" not found")
}

// FieldErrors 400响应，错误体为 字段 -> 错误列表
func (rh *ResponseHelper) FieldErrors(c *gin.Context, fields map[string][]string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fields})
}

// PlainError 错误体为单个字符串的响应
func (rh *ResponseHelper) PlainError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": sanitizeErrorMessage(message)})
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
