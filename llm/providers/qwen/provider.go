package qwen

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm/providers/openaicompat"
)

// Config 配置 Qwen Provider。
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// Provider 实现通义千问聊天补全。
type Provider struct {
	*openaicompat.Provider
}

// New 创建 Qwen Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dashscope.aliyuncs.com"
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = "qwen-plus"
	}
	base := openaicompat.New(openaicompat.Config{
		ProviderName:   "qwen",
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		DefaultModel:   cfg.Model,
		FallbackModel:  cfg.FallbackModel,
		Timeout:        cfg.Timeout,
		EndpointPath:   "/compatible-mode/v1/chat/completions",
		ModelsEndpoint: "/compatible-mode/v1/models",
	}, logger)
	return &Provider{Provider: base}
}
