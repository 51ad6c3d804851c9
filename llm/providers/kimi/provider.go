package kimi

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm/providers/openaicompat"
)

// Config 配置 Kimi Provider。
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// Provider 实现 Kimi 聊天补全。
type Provider struct {
	*openaicompat.Provider
}

// New 创建 Kimi Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.moonshot.cn"
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = "moonshot-v1-8k"
	}
	base := openaicompat.New(openaicompat.Config{
		ProviderName:  "kimi",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: cfg.FallbackModel,
		Timeout:       cfg.Timeout,
	}, logger)
	return &Provider{Provider: base}
}
