// internal/llm/providers/openai/openai.go
package openai

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Corphon/ShortsArchitect/internal/llm"
)

func init() {
	llm.Register("openai", func() llm.Provider {
		return &Provider{}
	})
}

// Provider 基于官方 openai-go SDK 的提供者
type Provider struct {
	client       openai.Client
	defaultModel string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("OpenAI API key not provided")
	}

	// 失败由调用方决定是否重新提交，SDK 不做自动重试
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL := config["base_url"]; baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	p.client = openai.NewClient(opts...)

	if model := config["default_model"]; model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = "gpt-4.1-mini"
	}

	return nil
}

func (p *Provider) GetName() string {
	return "OpenAI"
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(widenTemperature(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(completion.Choices) == 0 {
		return &llm.CompletionResponse{ModelName: completion.Model, ProviderName: p.GetName()}, nil
	}

	choice := completion.Choices[0]
	return &llm.CompletionResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		TokensUsed:   int(completion.Usage.TotalTokens),
		PromptTokens: int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		ModelName:    completion.Model,
		ProviderName: p.GetName(),
	}, nil
}

// widenTemperature 按 float32 的最短十进制表示转换，避免 0.9 变成 0.8999999761581421
func widenTemperature(t float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(t), 'g', -1, 32), 64)
	if err != nil {
		return float64(t)
	}
	return v
}
