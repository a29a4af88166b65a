// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/Corphon/ShortsArchitect/internal/config"
	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
	"github.com/Corphon/ShortsArchitect/internal/llm"
	"github.com/Corphon/ShortsArchitect/internal/services"
	"github.com/Corphon/ShortsArchitect/internal/studio"
	"github.com/Corphon/ShortsArchitect/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	blueprints *services.BlueprintService
	metrics    *utils.APIMetrics
	sockets    *WebSocketManager
	responses  *ResponseHelper
	logger     *utils.Logger
}

// NewHandler 创建API处理器
func NewHandler(blueprints *services.BlueprintService, metrics *utils.APIMetrics) *Handler {
	if metrics == nil {
		metrics = utils.NewAPIMetrics()
	}
	return &Handler{
		blueprints: blueprints,
		metrics:    metrics,
		sockets:    NewWebSocketManager(metrics),
		responses:  NewResponseHelper(),
		logger:     utils.GetLogger(),
	}
}

// Sockets 返回工作室连接管理器
func (h *Handler) Sockets() *WebSocketManager {
	return h.sockets
}

// GenerateBlueprint 校验简报并合成蓝图
// 200 返回蓝图本身，400 返回字段错误，500 返回单条错误信息
func (h *Handler) GenerateBlueprint(c *gin.Context) {
	// 凭证缺失时不读取请求体
	if err := h.blueprints.CheckConfiguration(); err != nil {
		h.reportError(c, err, "generate")
		h.responses.PlainError(c, http.StatusInternalServerError, apperrors.UserMessage(err))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.responses.FieldErrors(c, map[string][]string{services.BriefBodyField: {"Unable to read request body"}})
		return
	}

	brief, err := h.blueprints.Briefs().ParsePayload(body)
	if err != nil {
		h.reportError(c, err, "generate")
		if fields := apperrors.FieldErrors(err); fields != nil {
			h.responses.FieldErrors(c, fields)
			return
		}
		h.responses.PlainError(c, http.StatusInternalServerError, apperrors.UserMessage(err))
		return
	}

	// 客户端断开不取消模型调用
	blueprint, err := h.blueprints.Synthesize(context.WithoutCancel(c.Request.Context()), brief)
	if err != nil {
		h.reportError(c, err, "generate")
		h.responses.PlainError(c, http.StatusInternalServerError, apperrors.UserMessage(err))
		return
	}

	c.JSON(http.StatusOK, blueprint)
}

// GetDefaultBrief 返回表单预填的默认简报
func (h *Handler) GetDefaultBrief(c *gin.Context) {
	h.responses.Success(c, studio.DefaultBrief())
}

// HealthCheck 返回服务状态与提供者配置
func (h *Handler) HealthCheck(c *gin.Context) {
	provider := h.blueprints.ProviderName()
	h.responses.Success(c, gin.H{
		"status":                "ok",
		"provider":              provider,
		"credential_env":        config.APIKeyEnv(provider),
		"credential_configured": h.blueprints.CheckConfiguration() == nil,
		"providers":             llm.ListProviders(),
	})
}

// GetMetrics 返回进程内指标
func (h *Handler) GetMetrics(c *gin.Context) {
	h.responses.Success(c, h.metrics.Collector().GetMetrics())
}

// GetWebSocketStatus 返回工作室连接状态
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.responses.Success(c, h.sockets.GetStatus())
}

// StudioWebSocket 建立工作室会话连接
func (h *Handler) StudioWebSocket(c *gin.Context) {
	h.sockets.ServeStudio(c, h.blueprints)
}

// NoRoute 未匹配路由
func (h *Handler) NoRoute(c *gin.Context) {
	h.responses.NotFound(c, c.Request.URL.Path)
}

// reportError 记录错误、统计指标，服务端故障上报 Sentry
func (h *Handler) reportError(c *gin.Context, err error, component string) {
	errType := "unknown"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		errType = string(appErr.Type)
	}
	h.metrics.RecordError(errType, component)

	fields := map[string]interface{}{
		"request_id": c.GetString("request_id"),
		"component":  component,
		"error_type": errType,
		"error":      sanitizeErrorMessage(err.Error()),
	}

	// 校验错误由调用方造成，不视为服务端故障
	if apperrors.IsValidationError(err) {
		h.logger.Warn("简报校验失败", fields)
		return
	}

	h.logger.Error("蓝图生成失败", fields)
	utils.CaptureError(sentrygin.GetHubFromContext(c), err, map[string]string{
		"component":  component,
		"error_type": errType,
		"error_code": errorCodeFor(err),
		"request_id": c.GetString("request_id"),
	})
}
