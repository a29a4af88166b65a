// internal/api/router.go
package api

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Corphon/ShortsArchitect/internal/config"
)

// RouterOptions 路由的可选集成
type RouterOptions struct {
	SentryEnabled bool
	OTelEnabled   bool
}

// SetupRouter 配置HTTP路由
func SetupRouter(cfg *config.Config, handler *Handler, opts RouterOptions) *gin.Engine {
	if cfg == nil {
		cfg = &config.Config{AllowedOrigins: []string{"*"}, OTelServiceName: "shorts-architect"}
	}
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	if opts.SentryEnabled {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if opts.OTelEnabled {
		r.Use(otelgin.Middleware(cfg.OTelServiceName))
	}

	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(RequestContext())
	r.Use(RequestLogger(handler.metrics))

	handler.sockets.SetAllowedOrigins(cfg.AllowedOrigins)

	// WebSocket 支持
	r.GET("/ws/studio", handler.StudioWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		api.POST("/generate", handler.GenerateBlueprint)
		api.GET("/brief/default", handler.GetDefaultBrief)

		api.GET("/health", handler.HealthCheck)
		api.GET("/metrics", handler.GetMetrics)
		api.GET("/ws/status", handler.GetWebSocketStatus)
	}

	r.NoRoute(handler.NoRoute)

	return r
}

// corsConfig 跨域配置，来源为 "*" 时不允许携带凭证
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", headerRequestID},
		ExposeHeaders: []string{"Content-Length", headerRequestID, headerTraceID},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	for _, origin := range origins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
