// internal/api/middleware.go
package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/Corphon/ShortsArchitect/internal/utils"
)

const (
	headerRequestID = "X-Request-Id"
	headerTraceID   = "X-Trace-Id"

	maxRequestIDLength = 128
)

// RequestContext 为每个请求分配请求ID并关联追踪ID
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = uuid.New().String()
		}

		traceID := ""
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
			traceID = spanCtx.TraceID().String()
		}

		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerRequestID, reqID)
		if traceID != "" {
			c.Set("trace_id", traceID)
			c.Writer.Header().Set(headerTraceID, traceID)
		}
		c.Next()
	}
}

// RequestLogger 使用 logrus 记录请求并统计接口指标
func RequestLogger(metrics *utils.APIMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		if metrics != nil {
			metrics.RecordAPIRequest(endpoint, c.Request.Method, status, latency)
		}

		if raw != "" {
			path = path + "?" + raw
		}

		entry := utils.GetLogger().Base().WithFields(logrus.Fields{
			"status":     status,
			"latency":    latency,
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
			"request_id": c.GetString("request_id"),
		})

		// 健康检查只在出错时记录
		if strings.HasSuffix(path, "/health") && status < 400 {
			return
		}

		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request completed")
		}
	}
}
