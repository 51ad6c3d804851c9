package deepseek

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm/providers/openaicompat"
)

// Config 配置 DeepSeek Provider。
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// Provider 实现 DeepSeek 聊天补全。
type Provider struct {
	*openaicompat.Provider
}

// New 创建 DeepSeek Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = "deepseek-chat"
	}
	base := openaicompat.New(openaicompat.Config{
		ProviderName:   "deepseek",
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		DefaultModel:   cfg.Model,
		FallbackModel:  cfg.FallbackModel,
		Timeout:        cfg.Timeout,
		EndpointPath:   "/chat/completions",
		ModelsEndpoint: "/models",
	}, logger)
	return &Provider{Provider: base}
}
