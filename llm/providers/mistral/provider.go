package mistral

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/metaexpert/llm/providers/openaicompat"
)

// Config 配置 Mistral Provider。
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// Provider 实现 Mistral 聊天补全。
type Provider struct {
	*openaicompat.Provider
}

// New 创建 Mistral Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai"
	}
	base := openaicompat.New(openaicompat.Config{
		ProviderName:  "mistral",
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DefaultModel:  cfg.Model,
		FallbackModel: cfg.FallbackModel,
		Timeout:       cfg.Timeout,
	}, logger)
	return &Provider{Provider: base}
}
