// internal/services/blueprint_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Corphon/ShortsArchitect/internal/config"
	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
	"github.com/Corphon/ShortsArchitect/internal/llm"
	"github.com/Corphon/ShortsArchitect/internal/models"
	"github.com/Corphon/ShortsArchitect/internal/utils"
)

const (
	// BlueprintMaxTokens 单次合成的输出 token 上限
	BlueprintMaxTokens = 1400
	// BlueprintTemperature 偏向创意多样性
	BlueprintTemperature float32 = 0.9
)

// ProviderFactory 按名称和配置创建模型提供者
type ProviderFactory func(name string, cfg map[string]string) (llm.Provider, error)

// BlueprintService 把创意简报合成为经过校验的蓝图
// 不保存跨请求的可变状态，凭证在每次调用时读取
type BlueprintService struct {
	providerName string
	model        string
	baseURL      string

	credentials func() string
	newProvider ProviderFactory

	briefs  *BriefValidator
	schema  *BlueprintSchema
	metrics *utils.APIMetrics
	logger  *utils.Logger
}

// NewBlueprintService 创建合成服务
func NewBlueprintService(cfg *config.Config, metrics *utils.APIMetrics) *BlueprintService {
	providerName := config.DefaultLLMProvider
	model := ""
	baseURL := ""
	if cfg != nil {
		if cfg.LLMProvider != "" {
			providerName = cfg.LLMProvider
		}
		model = cfg.LLMModel
		baseURL = cfg.LLMBaseURL
	}
	if metrics == nil {
		metrics = utils.NewAPIMetrics()
	}

	return &BlueprintService{
		providerName: providerName,
		model:        model,
		baseURL:      baseURL,
		credentials:  func() string { return config.LookupAPIKey(providerName) },
		newProvider:  llm.GetProvider,
		briefs:       NewBriefValidator(),
		schema:       NewBlueprintSchema(),
		metrics:      metrics,
		logger:       utils.GetLogger(),
	}
}

// ProviderName 返回配置的提供者名称
func (s *BlueprintService) ProviderName() string {
	return s.providerName
}

// Briefs 返回服务使用的简报校验器
func (s *BlueprintService) Briefs() *BriefValidator {
	return s.briefs
}

// CheckConfiguration 检查模型凭证是否存在
func (s *BlueprintService) CheckConfiguration() error {
	if s.credentials() == "" {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("%s is not configured on the server.", config.APIKeyEnv(s.providerName)), nil)
	}
	return nil
}

// Generate 检查凭证、校验简报后合成蓝图，顺序与 HTTP 接口一致
func (s *BlueprintService) Generate(ctx context.Context, brief models.CreativeBrief) (*models.Blueprint, error) {
	if err := s.CheckConfiguration(); err != nil {
		return nil, err
	}
	if err := s.briefs.Validate(brief); err != nil {
		return nil, err
	}
	return s.Synthesize(ctx, brief)
}

// Synthesize 调用模型并严格校验输出，失败不重试
func (s *BlueprintService) Synthesize(ctx context.Context, brief models.CreativeBrief) (*models.Blueprint, error) {
	ctx, span := otel.Tracer("services/blueprint").Start(ctx, "Synthesize")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", s.providerName),
		attribute.String("brief.language", brief.Language),
	)

	blueprint, err := s.synthesize(ctx, brief)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.UserMessage(err))
		return nil, err
	}

	s.metrics.RecordBlueprint()
	span.SetAttributes(attribute.Int("blueprint.beats", len(blueprint.Script)))
	return blueprint, nil
}

func (s *BlueprintService) synthesize(ctx context.Context, brief models.CreativeBrief) (*models.Blueprint, error) {
	apiKey := s.credentials()
	if apiKey == "" {
		return nil, s.CheckConfiguration()
	}

	providerCfg := map[string]string{"api_key": apiKey}
	if s.model != "" {
		providerCfg["default_model"] = s.model
	}
	if s.baseURL != "" {
		providerCfg["base_url"] = s.baseURL
	}

	provider, err := s.newProvider(s.providerName, providerCfg)
	if err != nil {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("LLM provider %q could not be initialized: %v", s.providerName, err), err)
	}

	start := time.Now()
	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		SystemPrompt: BlueprintSystemPrompt,
		Prompt:       BuildUserPrompt(brief),
		MaxTokens:    BlueprintMaxTokens,
		Temperature:  BlueprintTemperature,
		Model:        s.model,
	})
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("模型调用失败", map[string]interface{}{
			"provider": s.providerName,
			"duration": elapsed.String(),
			"error":    err.Error(),
		})
		return nil, apperrors.NewSynthesisError(transportMessage(err), err)
	}

	s.metrics.RecordLLMRequest(s.providerName, resp.ModelName, resp.TokensUsed, elapsed)
	s.logger.Debug("模型调用完成", map[string]interface{}{
		"provider":      s.providerName,
		"model":         resp.ModelName,
		"tokens_used":   resp.TokensUsed,
		"finish_reason": resp.FinishReason,
		"duration":      elapsed.String(),
	})

	return s.schema.ParseBlueprint(resp.Text)
}

func transportMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return apperrors.DefaultSynthesisMessage
}
