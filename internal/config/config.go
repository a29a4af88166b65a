// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// 默认模型提供者与模型
	DefaultLLMProvider = "openai"
	DefaultLLMModel    = "gpt-4.1-mini"
)

// 每个提供者对应的凭证环境变量
var apiKeyEnvByProvider = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// Config 存储应用配置
type Config struct {
	Port      string
	LogDir    string
	LogLevel  string
	DebugMode bool
	AppEnv    string

	// LLM相关配置（凭证不在此快照中，每次请求时读取）
	LLMProvider string
	LLMModel    string
	LLMBaseURL  string

	AllowedOrigins []string

	// 可观测性
	SentryDSN       string
	OTelEnabled     bool
	OTelSampleRatio float64
	OTelServiceName string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		LogDir:          getEnv("LOG_DIR", "logs"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DebugMode:       getEnvBool("DEBUG_MODE", false),
		AppEnv:          getEnv("APP_ENV", "development"),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", DefaultLLMProvider)),
		LLMModel:        getEnv("LLM_MODEL", DefaultLLMModel),
		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
		AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLER_RATIO", 0.1),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "shorts-architect"),
	}

	return cfg, nil
}

// APIKeyEnv 返回提供者凭证所在的环境变量名
func APIKeyEnv(provider string) string {
	if name, ok := apiKeyEnvByProvider[strings.ToLower(provider)]; ok {
		return name
	}
	return strings.ToUpper(provider) + "_API_KEY"
}

// LookupAPIKey 在调用时读取提供者凭证，未设置时返回空字符串
func LookupAPIKey(provider string) string {
	return strings.TrimSpace(os.Getenv(APIKeyEnv(provider)))
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes" || value == "on"
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// getEnvList 解析逗号分隔的列表
func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
