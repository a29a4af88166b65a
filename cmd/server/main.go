// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/ShortsArchitect/internal/api"
	"github.com/Corphon/ShortsArchitect/internal/config"
	"github.com/Corphon/ShortsArchitect/internal/observability"
	"github.com/Corphon/ShortsArchitect/internal/services"
	"github.com/Corphon/ShortsArchitect/internal/utils"

	// 注册模型提供者
	_ "github.com/Corphon/ShortsArchitect/internal/llm/providers/openai"
	_ "github.com/Corphon/ShortsArchitect/internal/llm/providers/openrouter"
)

const (
	shutdownTimeout = 30 * time.Second
	metricsInterval = 5 * time.Minute
)

func main() {
	log.Println("🚀 启动 Shorts Architect 服务器...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 日志
	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "server.log")); err != nil {
		log.Printf("⚠️ 日志文件初始化失败，仅输出到控制台: %v", err)
	}
	logger := utils.GetLogger()
	logger.SetLogLevel(cfg.LogLevel)
	defer logger.Close()

	// 3. 错误上报与追踪
	sentryEnabled, err := utils.InitSentry(cfg.SentryDSN, cfg.AppEnv)
	if err != nil {
		logger.Warn("Sentry 初始化失败，继续运行", map[string]interface{}{"error": err.Error()})
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownOTel := observability.InitOTel(rootCtx, observability.OtelConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.AppEnv,
		SampleRatio: cfg.OTelSampleRatio,
	})

	// 4. 服务与路由
	metrics := utils.NewAPIMetrics()
	blueprints := services.NewBlueprintService(cfg, metrics)
	if err := blueprints.CheckConfiguration(); err != nil {
		// 不阻止启动，生成请求会返回配置错误
		logger.Warn("模型凭证未配置", map[string]interface{}{
			"provider": blueprints.ProviderName(),
			"env":      config.APIKeyEnv(blueprints.ProviderName()),
		})
	}

	handler := api.NewHandler(blueprints, metrics)
	router := api.SetupRouter(cfg, handler, api.RouterOptions{
		SentryEnabled: sentryEnabled,
		OTelEnabled:   cfg.OTelEnabled,
	})

	go handler.Sockets().Run(rootCtx)
	metrics.StartMetricsCollection(rootCtx, metricsInterval)

	// 5. 启动服务器
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("服务器已启动", map[string]interface{}{
			"port":     cfg.Port,
			"provider": blueprints.ProviderName(),
			"model":    cfg.LLMModel,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("❌ 启动服务器失败: %v", err)
		}
	}()

	waitForShutdown(srv, stop, shutdownOTel)
}

// waitForShutdown 等待中断信号并按顺序关闭
func waitForShutdown(srv *http.Server, stop context.CancelFunc, shutdownOTel func(context.Context) error) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger := utils.GetLogger()
	logger.Info("🛑 正在关闭服务器...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 先停止后台任务与 WebSocket 连接，HTTP Shutdown 不等待被劫持的连接
	stop()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器强制关闭", map[string]interface{}{"error": err.Error()})
	}
	if err := shutdownOTel(ctx); err != nil {
		logger.Warn("otel 关闭失败", map[string]interface{}{"error": err.Error()})
	}
	utils.FlushSentry(2 * time.Second)

	logger.Info("✅ 服务器优雅关闭完成", nil)
}
